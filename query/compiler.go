// Copyright 2024 The memris Authors
// This file is part of memris.
//
// memris is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// memris is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with memris. If not, see <http://www.gnu.org/licenses/>.

package query

import (
	"strings"

	"github.com/Thejuampi/memris-sub003/entity"
	"github.com/Thejuampi/memris-sub003/index"
	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
)

// indexKindFor returns which index.Kind family, if any, supports op, so the
// compiler can check it against what the catalog actually registered for a
// path.
func indexKindFor(op Operator) (index.Kind, bool) {
	switch op {
	case OpEquals, OpIn:
		return index.KindHash, true
	case OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual, OpBetween:
		return index.KindRange, true
	case OpStartsWith:
		return index.KindPrefix, true
	case OpEndsWith:
		return index.KindSuffix, true
	default:
		return 0, false
	}
}

// validateOperator rejects an operator/TypeCode combination that can never
// execute, e.g. STARTS_WITH on a Long column.
func validateOperator(op Operator, tc typecode.TypeCode) error {
	switch op {
	case OpStartsWith, OpEndsWith, OpContains:
		if tc != typecode.String {
			return errors.Wrapf(merrors.ErrUnsupportedOperator, "string operator on type %v", tc)
		}
	case OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual, OpBetween:
		if !tc.Numeric() && tc != typecode.String {
			return errors.Wrapf(merrors.ErrUnsupportedOperator, "ordering operator on type %v", tc)
		}
	}
	return nil
}

// Compile resolves md's conditions, ordering, and group-by path against
// meta, classifying each condition as indexed or residual using catalog
// (built by the arena from the entity's registered indexes), and assigns
// each condition a stable slot in the executor's argument vector in source
// order. related supplies the target metadata/catalog for every OneToMany/
// ManyToMany relation meta declares, letting a dotted relation-path
// condition (e.g. "Orders.Status") compile into a CompiledJoinCondition
// instead of a plain column condition. related may be nil when meta
// declares no collection-valued relations.
func Compile(meta *entity.EntityMetadata, catalog Catalog, related Related, md MethodDescriptor) (*CompiledQuery, error) {
	cq := &CompiledQuery{
		Opcode:     md.Opcode,
		ReturnKind: md.ReturnKind,
		Limit:      md.Limit,
		Arity:      md.Arity,
		EntityName: meta.Name,
	}

	// slotToCondition maps a source-order slot (the index a Condition held
	// in md.Conditions, also its ArgumentSlot) to its compacted position in
	// cq.Conditions, so OrGroups — which names slots, not positions — can
	// be rewritten once relation-path conditions are pulled out into
	// cq.Joins instead.
	slotToCondition := make(map[int]int, len(md.Conditions))
	for i, c := range md.Conditions {
		relName, rest, isRelPath := splitRelationPath(c.Path)
		if isRelPath {
			if rel, ok := meta.RelationByName(relName); ok && (rel.Kind == entity.OneToMany || rel.Kind == entity.ManyToMany) {
				jc, err := compileJoinCondition(rel, related, Condition{Path: rest, Op: c.Op, IgnoreCase: c.IgnoreCase}, i)
				if err != nil {
					return nil, errors.Wrapf(err, "condition %q", c.Path)
				}
				cq.Joins = append(cq.Joins, jc)
				continue
			}
		}

		cc, err := compileCondition(meta, catalog, c, i)
		if err != nil {
			return nil, err
		}
		slotToCondition[i] = len(cq.Conditions)
		cq.Conditions = append(cq.Conditions, cc)
	}

	if len(md.OrGroups) > 0 {
		cq.OrGroups = make([][]int, len(md.OrGroups))
		for gi, group := range md.OrGroups {
			remapped := make([]int, len(group))
			for j, slot := range group {
				pos, ok := slotToCondition[slot]
				if !ok {
					return nil, errors.Errorf("OrGroup references a relation-path condition, which cannot be combined with OR")
				}
				remapped[j] = pos
			}
			cq.OrGroups[gi] = remapped
		}
	}

	if md.OrderBy != nil {
		plan, err := meta.Plan(md.OrderBy.Path)
		if err != nil {
			return nil, err
		}
		cq.OrderBy = &CompiledOrder{ColumnIndex: plan.ColumnPosition, TypeCode: plan.TypeCode, Desc: md.OrderBy.Desc, Plan: plan}
	}

	if md.ReturnKind == ReturnGroupedMap {
		plan, err := meta.Plan(md.GroupByPath)
		if err != nil {
			return nil, err
		}
		cq.GroupBy = &CompiledCondition{ColumnIndex: plan.ColumnPosition, TypeCode: plan.TypeCode, Plan: plan}
	}

	if len(md.ProjectionShape) > 0 {
		cq.Projection = make([]ProjectionField, len(md.ProjectionShape))
		for i, path := range md.ProjectionShape {
			plan, err := meta.Plan(path)
			if err != nil {
				return nil, err
			}
			cq.Projection[i] = ProjectionField{Name: path, ColumnIndex: plan.ColumnPosition, TypeCode: plan.TypeCode, Plan: plan}
		}
	}

	return cq, nil
}

// splitRelationPath splits path on its first "." into a candidate relation
// name and the remainder, e.g. "Orders.Status" -> ("Orders", "Status",
// true). A path with no dot is never a relation path.
func splitRelationPath(path string) (string, string, bool) {
	head, rest, found := strings.Cut(path, ".")
	if !found || rest == "" {
		return "", "", false
	}
	return head, rest, true
}

// compileJoinCondition compiles a relation-path condition's remainder
// against the relation's target entity (named by rel.Target, resolved
// through related), producing a CompiledJoinCondition whose
// TargetCondition carries the same ArgumentSlot as the outer condition it
// replaces, so the caller's argument vector needs no separate slot range
// for join conditions.
func compileJoinCondition(rel entity.RelationMetadata, related Related, c Condition, slot int) (CompiledJoinCondition, error) {
	if rel.Kind == entity.ManyToMany {
		return CompiledJoinCondition{}, errors.Wrapf(merrors.ErrUnsupportedRelationQuery,
			"relation %q: ManyToMany relation-path conditions require a registered join table, not yet compiled", rel.Name)
	}
	target, ok := related[rel.Name]
	if !ok {
		return CompiledJoinCondition{}, errors.Errorf("relation %q: no target metadata supplied for relation-path condition", rel.Name)
	}
	tc, err := compileCondition(target.Meta, target.Catalog, c, slot)
	if err != nil {
		return CompiledJoinCondition{}, err
	}
	return CompiledJoinCondition{RelationName: rel.Name, Kind: rel.Kind, TargetCondition: tc}, nil
}

func compileCondition(meta *entity.EntityMetadata, catalog Catalog, c Condition, slot int) (CompiledCondition, error) {
	plan, err := meta.Plan(c.Path)
	if err != nil {
		return CompiledCondition{}, err
	}
	if err := validateOperator(c.Op, plan.TypeCode); err != nil {
		return CompiledCondition{}, errors.Wrapf(err, "condition %q", c.Path)
	}

	cc := CompiledCondition{
		ColumnIndex:  plan.ColumnPosition,
		TypeCode:     plan.TypeCode,
		Operator:     c.Op,
		IgnoreCase:   c.IgnoreCase,
		ArgumentSlot: slot,
		Plan:         plan,
	}

	if c.IgnoreCase {
		// A folded comparison cannot be served by an index built over raw
		// byte order; it always falls back to the residual scan path.
		return cc, nil
	}

	wantKind, ok := indexKindFor(c.Op)
	if !ok {
		return cc, nil
	}
	if handle, present := catalog[c.Path]; present && handle.Kind == wantKind {
		cc.Indexed = true
		cc.Index = handle
	}
	return cc, nil
}
