package checker

import (
	"plcheck/internal/bridge"
)

// collect folds a resolved query's object references into the run's
// dependency list. Records deduplicate by (kind, oid) and keep discovery
// order, so the report is stable for a given statement tree.
func (cs *CheckState) collect(rq *bridge.ResolvedQuery) {
	for _, t := range rq.Tables {
		cs.addDep(DependencyRecord{
			Kind:   DepRelation,
			Oid:    t.Oid,
			Schema: t.Schema,
			Name:   t.Name,
		})
	}
	for _, f := range rq.Functions {
		cs.addDep(DependencyRecord{
			Kind:      DepFunction,
			Oid:       f.Oid,
			Schema:    f.Schema,
			Name:      f.Name,
			Signature: f.Signature,
		})
	}
	for _, op := range rq.Operators {
		cs.addDep(DependencyRecord{
			Kind: DepOperator,
			Oid:  op.Oid,
			Name: op.Name,
		})
	}
}

func (cs *CheckState) addDep(rec DependencyRecord) {
	key := depKey{kind: rec.Kind, oid: rec.Oid}
	if _, ok := cs.depKeys[key]; ok {
		return
	}
	cs.depKeys[key] = struct{}{}
	cs.deps = append(cs.deps, rec)
}
