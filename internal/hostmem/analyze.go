package hostmem

import (
	"fmt"

	"plcheck/internal/bridge"
	"plcheck/internal/diag"
	"plcheck/internal/types"
)

// Keywords the expression scanner skips over.
var sqlKeywords = map[string]bool{
	"from": true, "where": true, "group": true, "order": true, "by": true,
	"having": true, "limit": true, "offset": true, "join": true,
	"inner": true, "left": true, "right": true, "full": true, "outer": true,
	"cross": true, "on": true, "and": true, "or": true, "not": true,
	"as": true, "distinct": true, "all": true, "is": true, "null": true,
	"in": true, "like": true, "ilike": true, "between": true, "case": true,
	"when": true, "then": true, "else": true, "end": true, "cast": true,
	"using": true, "into": true, "values": true, "set": true, "asc": true,
	"desc": true, "union": true, "except": true, "intersect": true,
	"returning": true, "exists": true, "select": true, "insert": true,
	"update": true, "delete": true, "for": true, "of": true,
}

var seqFuncs = map[string]bool{
	"nextval": true, "currval": true, "setval": true,
}

var sanitizerFuncs = map[string]bool{
	"quote_ident": true, "quote_literal": true, "quote_nullable": true,
	"format": true,
}

type scopeEntry struct {
	alias string
	rel   *bridge.Relation
}

type analysis struct {
	cat   *Catalog
	env   bridge.AnalyzeEnv
	toks  []token
	scope []scopeEntry
	res   *bridge.ResolvedQuery
}

// AnalyzeQuery resolves one SQL fragment against the catalog and the
// per-run environment. It understands the limited fragment forms the
// checker produces; anything it cannot interpret resolves without error
// and without a result shape.
func (c *Catalog) AnalyzeQuery(query string, env bridge.AnalyzeEnv) (*bridge.ResolvedQuery, error) {
	a := &analysis{
		cat:  c,
		env:  env,
		toks: lex(query),
		res:  &bridge.ResolvedQuery{},
	}
	if len(a.toks) == 0 || a.toks[0].kind == tokEOF {
		return a.res, nil
	}
	head := a.toks[0]
	if head.kind != tokIdent {
		return a.res, nil
	}
	switch head.text {
	case "commit", "rollback":
		a.res.IsTransactionControl = true
		return a.res, nil
	case "select":
		if err := a.analyzeSelect(); err != nil {
			return nil, err
		}
	case "insert":
		if err := a.analyzeInsert(); err != nil {
			return nil, err
		}
	case "update":
		if err := a.analyzeUpdate(); err != nil {
			return nil, err
		}
	case "delete":
		if err := a.analyzeDelete(); err != nil {
			return nil, err
		}
	default:
		// utility or unsupported statement: best-effort scan for
		// parameters and function calls, no shape
		if _, _, err := a.scanExpr(1, len(a.toks)-1, false); err != nil {
			return nil, err
		}
	}
	return a.res, nil
}

// topLevelKeyword finds the first occurrence of an unparenthesized
// keyword at or after from, returning len(toks)-1 (EOF index) if absent.
func (a *analysis) topLevelKeyword(from int, names ...string) int {
	depth := 0
	for i := from; i < len(a.toks); i++ {
		switch a.toks[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokIdent:
			if depth == 0 {
				for _, n := range names {
					if a.toks[i].text == n {
						return i
					}
				}
			}
		}
	}
	return len(a.toks) - 1
}

func (a *analysis) lookupRelation(schema, name string, pos int) (*bridge.Relation, error) {
	for _, rel := range a.env.Relations {
		if rel.Name == name && (schema == "" || rel.Schema == schema) {
			return rel, nil
		}
	}
	rel, err := a.cat.LookupRelation(schema, name)
	if err != nil {
		return nil, &bridge.SQLError{
			Code:     diag.CodeUndefinedTable,
			Message:  fmt.Sprintf("relation %q does not exist", name),
			Position: pos,
		}
	}
	return rel, nil
}

func (a *analysis) addTable(rel *bridge.Relation) {
	a.res.Tables = append(a.res.Tables, bridge.TableRef{
		Oid:    rel.Oid,
		Schema: rel.Schema,
		Name:   rel.Name,
	})
}

// parseFromClause reads table references between lo and hi, filling the
// column scope.
func (a *analysis) parseFromClause(lo, hi int) error {
	i := lo
	for i < hi {
		t := a.toks[i]
		if t.kind != tokIdent || sqlKeywords[t.text] {
			i++
			continue
		}
		schema := ""
		name := t.text
		namePos := t.pos
		if i+2 < hi && a.toks[i+1].kind == tokDot && a.toks[i+2].kind == tokIdent {
			schema = name
			name = a.toks[i+2].text
			i += 2
		}
		rel, err := a.lookupRelation(schema, name, namePos)
		if err != nil {
			return err
		}
		a.addTable(rel)
		alias := rel.Name
		// optional [AS] alias
		j := i + 1
		if j < hi && a.toks[j].kind == tokIdent && a.toks[j].text == "as" {
			j++
		}
		if j < hi && a.toks[j].kind == tokIdent && !sqlKeywords[a.toks[j].text] {
			alias = a.toks[j].text
			i = j
		}
		a.scope = append(a.scope, scopeEntry{alias: alias, rel: rel})
		// skip to next comma/join at depth 0; ON conditions are scanned
		// afterwards by the caller
		depth := 0
		i++
		for i < hi {
			switch a.toks[i].kind {
			case tokLParen:
				depth++
			case tokRParen:
				depth--
			case tokComma:
				if depth == 0 {
					i++
					goto next
				}
			case tokIdent:
				if depth == 0 && a.toks[i].text == "join" {
					i++
					goto next
				}
			}
			i++
		}
	next:
	}
	return nil
}

// findColumn resolves a possibly qualified column reference in scope.
func (a *analysis) findColumn(qual, name string, pos int) (types.Field, error) {
	for _, se := range a.scope {
		if qual != "" && se.alias != qual {
			continue
		}
		if f, idx := se.rel.Columns.Field(name); idx >= 0 {
			return f, nil
		}
	}
	ref := name
	if qual != "" {
		ref = qual + "." + name
	}
	return types.Field{}, &bridge.SQLError{
		Code:     diag.CodeUndefinedColumn,
		Message:  fmt.Sprintf("column %q does not exist", ref),
		Position: pos,
	}
}

func (a *analysis) paramType(num, pos int) (types.Ref, error) {
	if num < 1 || num > len(a.env.Params) {
		return types.Ref{}, &bridge.SQLError{
			Code:     diag.CodeUndefinedParameter,
			Message:  fmt.Sprintf("there is no parameter $%d", num),
			Position: pos,
		}
	}
	return a.env.Params[num-1], nil
}

func (a *analysis) analyzeSelect() error {
	fromIdx := a.topLevelKeyword(1, "from")
	tailIdx := len(a.toks) - 1
	if fromIdx < tailIdx {
		whereIdx := a.topLevelKeyword(fromIdx+1, "where", "group", "order", "having", "limit", "offset", "union", "except", "intersect")
		if err := a.parseFromClause(fromIdx+1, whereIdx); err != nil {
			return err
		}
		// WHERE and later clauses; join conditions between FROM and WHERE
		// stay unexamined, the double errs on the tolerant side there
		if _, _, err := a.scanExpr(whereIdx, tailIdx, false); err != nil {
			return err
		}
	}
	// select list
	items := a.splitItems(1, fromIdx)
	for _, it := range items {
		if err := a.resolveSelectItem(it[0], it[1]); err != nil {
			return err
		}
	}
	return nil
}

// splitItems splits [lo,hi) on top-level commas.
func (a *analysis) splitItems(lo, hi int) [][2]int {
	var items [][2]int
	depth := 0
	start := lo
	for i := lo; i < hi; i++ {
		switch a.toks[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokComma:
			if depth == 0 {
				items = append(items, [2]int{start, i})
				start = i + 1
			}
		}
	}
	if start < hi {
		items = append(items, [2]int{start, hi})
	}
	return items
}

func (a *analysis) resolveSelectItem(lo, hi int) error {
	if lo >= hi {
		return nil
	}
	// strip DISTINCT/ALL on the first item
	if a.toks[lo].kind == tokIdent && (a.toks[lo].text == "distinct" || a.toks[lo].text == "all") {
		lo++
	}
	if lo >= hi {
		return nil
	}
	// bare star: expand every table in scope
	if a.toks[lo].kind == tokStar && lo+1 == hi {
		for _, se := range a.scope {
			a.res.Columns.Fields = append(a.res.Columns.Fields, se.rel.Columns.Fields...)
		}
		return nil
	}
	// qualified star t.*
	if hi-lo == 3 && a.toks[lo].kind == tokIdent && a.toks[lo+1].kind == tokDot && a.toks[lo+2].kind == tokStar {
		for _, se := range a.scope {
			if se.alias == a.toks[lo].text {
				a.res.Columns.Fields = append(a.res.Columns.Fields, se.rel.Columns.Fields...)
				return nil
			}
		}
		return &bridge.SQLError{
			Code:     diag.CodeUndefinedTable,
			Message:  fmt.Sprintf("missing FROM-clause entry for table %q", a.toks[lo].text),
			Position: a.toks[lo].pos,
		}
	}
	// trailing AS alias
	name := ""
	if hi-lo >= 2 && a.toks[hi-1].kind == tokIdent && a.toks[hi-2].kind == tokIdent && a.toks[hi-2].text == "as" {
		name = a.toks[hi-1].text
		hi -= 2
	}
	ref, inferred, err := a.scanExpr(lo, hi, true)
	if err != nil {
		return err
	}
	if name == "" {
		name = inferred
	}
	if name == "" {
		name = "?column?"
	}
	a.res.Columns.Fields = append(a.res.Columns.Fields, types.Field{Name: name, Type: ref, Typmod: -1})
	return nil
}

func (a *analysis) analyzeInsert() error {
	// insert into T [(cols)] values (...) | select ...
	intoIdx := a.topLevelKeyword(1, "into")
	i := intoIdx + 1
	if i >= len(a.toks)-1 || a.toks[i].kind != tokIdent {
		return nil
	}
	schema := ""
	name := a.toks[i].text
	pos := a.toks[i].pos
	if a.toks[i+1].kind == tokDot && a.toks[i+2].kind == tokIdent {
		schema, name = name, a.toks[i+2].text
		i += 2
	}
	rel, err := a.lookupRelation(schema, name, pos)
	if err != nil {
		return err
	}
	a.addTable(rel)
	a.scope = append(a.scope, scopeEntry{alias: rel.Name, rel: rel})
	i++
	// explicit column list
	if i < len(a.toks)-1 && a.toks[i].kind == tokLParen {
		depth := 1
		for j := i + 1; j < len(a.toks)-1 && depth > 0; j++ {
			switch a.toks[j].kind {
			case tokLParen:
				depth++
			case tokRParen:
				depth--
			case tokIdent:
				if depth == 1 && !sqlKeywords[a.toks[j].text] {
					if _, err := a.findColumn("", a.toks[j].text, a.toks[j].pos); err != nil {
						return err
					}
				}
			}
			i = j
		}
		i++
	}
	_, _, err = a.scanExpr(i, len(a.toks)-1, false)
	return err
}

func (a *analysis) analyzeUpdate() error {
	i := 1
	if i >= len(a.toks)-1 || a.toks[i].kind != tokIdent {
		return nil
	}
	schema := ""
	name := a.toks[i].text
	pos := a.toks[i].pos
	if a.toks[i+1].kind == tokDot && a.toks[i+2].kind == tokIdent {
		schema, name = name, a.toks[i+2].text
		i += 2
	}
	rel, err := a.lookupRelation(schema, name, pos)
	if err != nil {
		return err
	}
	a.addTable(rel)
	a.scope = append(a.scope, scopeEntry{alias: rel.Name, rel: rel})
	setIdx := a.topLevelKeyword(i, "set")
	_, _, err = a.scanExpr(setIdx+1, len(a.toks)-1, false)
	return err
}

func (a *analysis) analyzeDelete() error {
	fromIdx := a.topLevelKeyword(1, "from")
	whereIdx := a.topLevelKeyword(fromIdx+1, "where", "returning")
	if err := a.parseFromClause(fromIdx+1, whereIdx); err != nil {
		return err
	}
	_, _, err := a.scanExpr(whereIdx, len(a.toks)-1, false)
	return err
}
