package factory

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/declarative"
	"github.com/cwbudde/go-formengine/internal/ids"
)

func (f *Factory) buildAnd(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.And{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue, n.Parent, n.Raw = id, parentID, f.Arena.Add(raw)
	n.KindValue = ast.KindAnd
	var err error
	if n.Operands, err = f.optionalIDList(raw, "operands", path, id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildOr(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Or{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue, n.Parent, n.Raw = id, parentID, f.Arena.Add(raw)
	n.KindValue = ast.KindOr
	var err error
	if n.Operands, err = f.optionalIDList(raw, "operands", path, id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildNot(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Not{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue, n.Parent, n.Raw = id, parentID, f.Arena.Add(raw)
	n.KindValue = ast.KindNot
	operandRaw, err := requireField(raw, "operand", path)
	if err != nil {
		return "", err
	}
	v, err := f.transformValue(operandRaw, append(path, "operand"), id)
	if err != nil {
		return "", err
	}
	n.Operand = v.NodeID
	n.PropsValue = map[string]ast.PropValue{}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildTest(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Test{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue, n.Parent, n.Raw = id, parentID, f.Arena.Add(raw)
	n.KindValue = ast.KindTest

	subjectRaw, err := requireField(raw, "subject", path)
	if err != nil {
		return "", err
	}
	sv, err := f.transformValue(subjectRaw, append(path, "subject"), id)
	if err != nil {
		return "", err
	}
	n.Subject = sv.NodeID

	conditionRaw, err := requireField(raw, "condition", path)
	if err != nil {
		return "", err
	}
	cv, err := f.transformValue(conditionRaw, append(path, "condition"), id)
	if err != nil {
		return "", err
	}
	n.Condition = cv.NodeID

	if neg, ok := optionalField(raw, "negate"); ok {
		b, _ := declarative.Scalar(neg).(bool)
		n.Negate = b
	}

	n.PropsValue = map[string]ast.PropValue{}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}
