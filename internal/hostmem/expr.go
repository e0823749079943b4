package hostmem

import (
	"fmt"
	"strings"

	"plcheck/internal/bridge"
	"plcheck/internal/diag"
	"plcheck/internal/types"
)

type operandKind uint8

const (
	opndNone operandKind = iota
	opndColumn
	opndParam
	opndLiteral
	opndCall
	opndGroup
)

type operand struct {
	kind operandKind
	ref  types.Ref
	name string
	pos  int
	// param number for opndParam
	num int
	// literal text for string literals
	lit    string
	strLit bool
	// parts of a call operand that touch parameters
	paramParts []bridge.ConcatPart
}

var comparisonOps = map[string]bool{
	"=": true, "<>": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// scanExpr walks [lo,hi) resolving column references, parameters and
// function calls. topItem enables concat decomposition for EXECUTE
// command strings. Returns the best-effort result type and an inferred
// column name.
func (a *analysis) scanExpr(lo, hi int, topItem bool) (types.Ref, string, error) {
	var operands []operand
	var ops []string
	i := lo
	for i < hi {
		t := a.toks[i]
		switch t.kind {
		case tokIdent:
			if sqlKeywords[t.text] {
				i++
				continue
			}
			opnd, next, err := a.parseOperand(i, hi)
			if err != nil {
				return types.Ref{}, "", err
			}
			operands = append(operands, opnd)
			i = next
		case tokQuotedIdent, tokParam, tokString, tokNumber, tokLParen:
			opnd, next, err := a.parseOperand(i, hi)
			if err != nil {
				return types.Ref{}, "", err
			}
			operands = append(operands, opnd)
			i = next
		case tokOp:
			if t.text == "::" {
				// cast: the following identifier names the target type
				if i+1 < hi && a.toks[i+1].kind == tokIdent {
					if ref, ok := TypeByName(a.toks[i+1].text); ok && len(operands) > 0 {
						operands[len(operands)-1].ref = ref
					}
					i += 2
					continue
				}
			}
			ops = append(ops, t.text)
			if comparisonOps[t.text] && len(operands) > 0 {
				left := operands[len(operands)-1]
				opnd, next, err := a.parseOperandAt(i+1, hi)
				if err != nil {
					return types.Ref{}, "", err
				}
				if opnd.kind != opndNone {
					a.noteImplicitCast(left, opnd)
					operands = append(operands, opnd)
					i = next
					continue
				}
			}
			i++
		default:
			i++
		}
	}

	if topItem {
		a.collectConcat(operands, ops)
	}

	// result type: comparisons yield boolean, concatenation text,
	// otherwise the first typed operand wins
	for _, op := range ops {
		if comparisonOps[op] {
			return TypeBool, "", nil
		}
	}
	for _, op := range ops {
		if op == "||" {
			return TypeText, "", nil
		}
	}
	if len(operands) == 1 {
		return operands[0].ref, operands[0].name, nil
	}
	for _, o := range operands {
		if o.ref.Valid() {
			return o.ref, "", nil
		}
	}
	return types.Ref{}, "", nil
}

// parseOperandAt skips non-operand tokens before parsing, used after a
// comparison operator.
func (a *analysis) parseOperandAt(i, hi int) (operand, int, error) {
	for i < hi {
		t := a.toks[i]
		if t.kind == tokIdent && sqlKeywords[t.text] {
			return operand{}, i, nil
		}
		switch t.kind {
		case tokIdent, tokQuotedIdent, tokParam, tokString, tokNumber, tokLParen:
			return a.parseOperand(i, hi)
		}
		return operand{}, i, nil
	}
	return operand{}, i, nil
}

// parseOperand consumes one operand starting at i.
func (a *analysis) parseOperand(i, hi int) (operand, int, error) {
	t := a.toks[i]
	switch t.kind {
	case tokParam:
		ref, err := a.paramType(t.num, t.pos)
		if err != nil {
			return operand{}, i, err
		}
		return operand{kind: opndParam, ref: ref, num: t.num, pos: t.pos}, i + 1, nil
	case tokString:
		return operand{kind: opndLiteral, ref: TypeText, lit: t.text, strLit: true, pos: t.pos}, i + 1, nil
	case tokNumber:
		ref := TypeInt4
		if strings.ContainsRune(t.text, '.') {
			ref = TypeNumeric
		}
		return operand{kind: opndLiteral, ref: ref, pos: t.pos}, i + 1, nil
	case tokLParen:
		close := a.matchParen(i, hi)
		// subqueries resolve in their own scope the double does not
		// model; leave them untyped instead of raising false errors
		if i+1 < close && a.toks[i+1].kind == tokIdent && a.toks[i+1].text == "select" {
			return operand{kind: opndGroup, pos: t.pos}, close + 1, nil
		}
		ref, _, err := a.scanExpr(i+1, close, false)
		if err != nil {
			return operand{}, i, err
		}
		return operand{kind: opndGroup, ref: ref, pos: t.pos}, close + 1, nil
	case tokQuotedIdent:
		f, err := a.resolveColumn("", t.text, t.pos)
		if err != nil {
			return operand{}, i, err
		}
		return operand{kind: opndColumn, ref: f.Type, name: f.Name, pos: t.pos}, i + 1, nil
	case tokIdent:
		switch t.text {
		case "true", "false":
			return operand{kind: opndLiteral, ref: TypeBool, pos: t.pos}, i + 1, nil
		case "null":
			return operand{kind: opndLiteral, pos: t.pos}, i + 1, nil
		}
		// function call
		if i+1 < hi && a.toks[i+1].kind == tokLParen {
			return a.parseCall(i, hi)
		}
		// qualified column
		if i+2 < hi && a.toks[i+1].kind == tokDot && (a.toks[i+2].kind == tokIdent || a.toks[i+2].kind == tokQuotedIdent) {
			f, err := a.resolveColumn(t.text, a.toks[i+2].text, t.pos)
			if err != nil {
				return operand{}, i, err
			}
			return operand{kind: opndColumn, ref: f.Type, name: f.Name, pos: t.pos}, i + 3, nil
		}
		f, err := a.resolveColumn("", t.text, t.pos)
		if err != nil {
			return operand{}, i, err
		}
		return operand{kind: opndColumn, ref: f.Type, name: f.Name, pos: t.pos}, i + 1, nil
	}
	return operand{}, i + 1, nil
}

// resolveColumn wraps findColumn; with an empty scope a bare identifier
// still reports an undefined column, matching the host's behavior for
// expressions without a FROM clause.
func (a *analysis) resolveColumn(qual, name string, pos int) (types.Field, error) {
	return a.findColumn(qual, name, pos)
}

func (a *analysis) matchParen(open, hi int) int {
	depth := 0
	for i := open; i < hi; i++ {
		switch a.toks[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return hi
}

// parseCall handles name(args...). Unknown non-builtin names are an
// undefined-function error.
func (a *analysis) parseCall(i, hi int) (operand, int, error) {
	name := a.toks[i].text
	namePos := a.toks[i].pos
	close := a.matchParen(i+1, hi)

	fns := a.cat.function(name)
	if len(fns) == 0 {
		return operand{}, i, &bridge.SQLError{
			Code:     diag.CodeUndefinedFunction,
			Message:  fmt.Sprintf("function %s does not exist", name),
			Hint:     "No function matches the given name and argument types. You might need to add explicit type casts.",
			Position: namePos,
		}
	}
	fn := fns[0]
	if !fn.Builtin {
		a.res.Functions = append(a.res.Functions, bridge.FunctionRef{
			Oid:        fn.Oid,
			Schema:     fn.Schema,
			Name:       fn.Name,
			Signature:  fn.Signature(),
			Volatility: fn.Volatility,
		})
	}

	opnd := operand{kind: opndCall, ref: fn.Result, name: fn.Name, pos: namePos}

	// sequence functions with a literal relation argument
	if seqFuncs[name] && i+2 < hi && a.toks[i+2].kind == tokString {
		a.res.SequenceArgs = append(a.res.SequenceArgs, bridge.SequenceArg{
			FuncName: name,
			Name:     a.toks[i+2].text,
			Position: a.toks[i+2].pos,
		})
	}

	switch {
	case name == "format":
		parts, err := a.formatParts(i+2, close)
		if err != nil {
			return operand{}, i, err
		}
		opnd.paramParts = parts
	case sanitizerFuncs[name]:
		for j := i + 2; j < close; j++ {
			if a.toks[j].kind == tokParam {
				if _, err := a.paramType(a.toks[j].num, a.toks[j].pos); err != nil {
					return operand{}, i, err
				}
				opnd.paramParts = append(opnd.paramParts, bridge.ConcatPart{
					ParamNo:     a.toks[j].num,
					SanitizedBy: name,
				})
			}
		}
	default:
		if _, _, err := a.scanExpr(i+2, close, false); err != nil {
			return operand{}, i, err
		}
	}
	return opnd, close + 1, nil
}

// formatParts maps format() arguments onto the placeholders of a literal
// format string: %I and %L sanitize, %s does not. A non-literal format
// string marks every parameter argument unsanitized.
func (a *analysis) formatParts(lo, hi int) ([]bridge.ConcatPart, error) {
	args := a.splitItems(lo, hi)
	if len(args) == 0 {
		return nil, nil
	}
	var placeholders []string
	first := a.toks[args[0][0]]
	if first.kind == tokString && args[0][1] == args[0][0]+1 {
		s := first.text
		for k := 0; k+1 < len(s); k++ {
			if s[k] == '%' {
				switch s[k+1] {
				case 'I', 'L', 's':
					placeholders = append(placeholders, s[k:k+2])
					k++
				case '%':
					k++
				}
			}
		}
	}
	var parts []bridge.ConcatPart
	for ai, arg := range args[1:] {
		for j := arg[0]; j < arg[1]; j++ {
			if a.toks[j].kind != tokParam {
				continue
			}
			if _, err := a.paramType(a.toks[j].num, a.toks[j].pos); err != nil {
				return nil, err
			}
			part := bridge.ConcatPart{ParamNo: a.toks[j].num}
			if ai < len(placeholders) && placeholders[ai] != "%s" {
				part.SanitizedBy = "format:" + placeholders[ai]
			}
			parts = append(parts, part)
		}
	}
	return parts, nil
}

// noteImplicitCast records a parameter compared against a column of a
// different concrete type.
func (a *analysis) noteImplicitCast(l, r operand) {
	var col, param operand
	switch {
	case l.kind == opndColumn && r.kind == opndParam:
		col, param = l, r
	case l.kind == opndParam && r.kind == opndColumn:
		col, param = r, l
	default:
		return
	}
	if !col.ref.Valid() || !param.ref.Valid() {
		return
	}
	if types.Same(col.ref, param.ref) {
		return
	}
	a.res.ImplicitCasts = append(a.res.ImplicitCasts, bridge.CastNote{
		Column:   col.name,
		From:     param.ref,
		To:       col.ref,
		Position: param.pos,
	})
}

// collectConcat decomposes a top-level || chain (or a bare sanitizer
// call, or a single string literal) into concat parts for the injection
// heuristic and for literal command re-checking.
func (a *analysis) collectConcat(operands []operand, ops []string) {
	hasConcat := false
	for _, op := range ops {
		if op == "||" {
			hasConcat = true
			break
		}
	}
	single := len(operands) == 1 &&
		(operands[0].kind == opndCall || (operands[0].kind == opndLiteral && operands[0].strLit))
	if !hasConcat && !single {
		return
	}
	var parts []bridge.ConcatPart
	for _, o := range operands {
		switch o.kind {
		case opndLiteral:
			if o.strLit {
				parts = append(parts, bridge.ConcatPart{IsLiteral: true, Literal: o.lit})
			}
		case opndParam:
			parts = append(parts, bridge.ConcatPart{ParamNo: o.num})
		case opndCall:
			parts = append(parts, o.paramParts...)
		}
	}
	if len(parts) > 0 {
		a.res.ConcatParts = parts
	}
}
