package factory

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/declarative"
	"github.com/cwbudde/go-formengine/internal/ids"
)

func (f *Factory) buildLoad(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Load{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue, n.Parent, n.Raw = id, parentID, f.Arena.Add(raw)
	n.KindValue = ast.KindLoad
	var err error
	if n.Effects, err = f.optionalIDList(raw, "effects", path, id); err != nil {
		return "", err
	}
	if n.Next, err = f.optionalIDList(raw, "next", path, id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildAccess(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Access{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue, n.Parent, n.Raw = id, parentID, f.Arena.Add(raw)
	n.KindValue = ast.KindAccess
	var err error
	if n.Guards, err = f.optionalIDField(raw, "guards", path, id); err != nil {
		return "", err
	}
	if n.Effects, err = f.optionalIDList(raw, "effects", path, id); err != nil {
		return "", err
	}
	if n.Next, err = f.optionalIDList(raw, "next", path, id); err != nil {
		return "", err
	}
	if n.Redirect, err = f.optionalIDList(raw, "redirect", path, id); err != nil {
		return "", err
	}
	if n.Message, err = f.propField(raw, "message", path, id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{"message": n.Message}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildSubmitBranch(raw string, name string, path []string, parentID ids.ID) (ast.SubmitBranch, error) {
	var branch ast.SubmitBranch
	fieldRaw, ok := optionalField(raw, name)
	if !ok {
		return branch, nil
	}
	branchPath := append(path, name)
	var err error
	if branch.Effects, err = f.optionalIDList(fieldRaw, "effects", branchPath, parentID); err != nil {
		return branch, err
	}
	if branch.Next, err = f.optionalIDList(fieldRaw, "next", branchPath, parentID); err != nil {
		return branch, err
	}
	return branch, nil
}

func (f *Factory) buildSubmit(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Submit{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue, n.Parent, n.Raw = id, parentID, f.Arena.Add(raw)
	n.KindValue = ast.KindSubmit
	var err error
	if n.When, err = f.optionalIDField(raw, "when", path, id); err != nil {
		return "", err
	}
	if v, ok := optionalField(raw, "validate"); ok {
		b, _ := declarative.Scalar(v).(bool)
		n.Validate = b
	} else {
		n.Validate = true
	}
	if n.OnValid, err = f.buildSubmitBranch(raw, "onValid", path, id); err != nil {
		return "", err
	}
	if n.OnInvalid, err = f.buildSubmitBranch(raw, "onInvalid", path, id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildAction(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Action{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue, n.Parent, n.Raw = id, parentID, f.Arena.Add(raw)
	n.KindValue = ast.KindAction
	var err error
	if n.When, err = f.optionalIDField(raw, "when", path, id); err != nil {
		return "", err
	}
	if n.Effects, err = f.optionalIDList(raw, "effects", path, id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}
