package factory

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/declarative"
	"github.com/cwbudde/go-formengine/internal/ids"
)

func (f *Factory) buildJourney(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	codeRaw, err := requireField(raw, "code", path)
	if err != nil {
		return "", err
	}
	pathRaw, err := requireField(raw, "path", path)
	if err != nil {
		return "", err
	}
	titleRaw, err := requireField(raw, "title", path)
	if err != nil {
		return "", err
	}

	n := &ast.Journey{
		Code:  declarative.Scalar(codeRaw).(string),
		Path:  declarative.Scalar(pathRaw).(string),
		Title: declarative.Scalar(titleRaw).(string),
	}
	if d, ok := optionalField(raw, "description"); ok {
		s, _ := declarative.Scalar(d).(string)
		n.Description = &s
	}
	if e, ok := optionalField(raw, "entryPath"); ok {
		s, _ := declarative.Scalar(e).(string)
		n.EntryPath = &s
	}

	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindJourney
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)

	if n.Steps, err = f.optionalIDList(raw, "steps", path, id); err != nil {
		return "", err
	}
	if n.Children, err = f.optionalIDList(raw, "children", path, id); err != nil {
		return "", err
	}
	if n.OnLoad, err = f.optionalIDList(raw, "onLoad", path, id); err != nil {
		return "", err
	}
	if n.OnAccess, err = f.optionalIDList(raw, "onAccess", path, id); err != nil {
		return "", err
	}
	if n.View, err = f.propField(raw, "view", path, id); err != nil {
		return "", err
	}
	if n.Data, err = f.propField(raw, "data", path, id); err != nil {
		return "", err
	}
	if metaRaw, ok := optionalField(raw, "metadata"); ok {
		mv, err := f.transformValue(metaRaw, append(path, "metadata"), id)
		if err != nil {
			return "", err
		}
		n.Metadata = mv.Map
	}

	props := map[string]ast.PropValue{
		"code": ast.ScalarValue(n.Code), "path": ast.ScalarValue(n.Path), "title": ast.ScalarValue(n.Title),
		"view": n.View, "data": n.Data,
	}
	n.PropsValue = props
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	for _, childID := range append(append([]ids.ID{}, n.Steps...), n.Children...) {
		if child, ok := f.Nodes.Get(childID); ok {
			child.SetParentID(id)
		}
	}
	return id, nil
}

func (f *Factory) buildStep(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	pathField, err := requireField(raw, "path", path)
	if err != nil {
		return "", err
	}

	n := &ast.Step{Path: declarative.Scalar(pathField).(string)}
	if t, ok := optionalField(raw, "title"); ok {
		s, _ := declarative.Scalar(t).(string)
		n.Title = &s
	}
	if d, ok := optionalField(raw, "description"); ok {
		s, _ := declarative.Scalar(d).(string)
		n.Description = &s
	}
	if ep, ok := optionalField(raw, "isEntryPoint"); ok {
		b, _ := declarative.Scalar(ep).(bool)
		n.IsEntryPoint = b
	}

	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindStep
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)

	if n.Blocks, err = f.optionalIDList(raw, "blocks", path, id); err != nil {
		return "", err
	}
	if n.OnLoad, err = f.optionalIDList(raw, "onLoad", path, id); err != nil {
		return "", err
	}
	if n.OnAccess, err = f.optionalIDList(raw, "onAccess", path, id); err != nil {
		return "", err
	}
	if n.OnAction, err = f.optionalIDList(raw, "onAction", path, id); err != nil {
		return "", err
	}
	if n.OnSubmission, err = f.optionalIDList(raw, "onSubmission", path, id); err != nil {
		return "", err
	}
	if n.View, err = f.propField(raw, "view", path, id); err != nil {
		return "", err
	}
	if metaRaw, ok := optionalField(raw, "metadata"); ok {
		mv, err := f.transformValue(metaRaw, append(path, "metadata"), id)
		if err != nil {
			return "", err
		}
		n.Metadata = mv.Map
	}

	n.PropsValue = map[string]ast.PropValue{"path": ast.ScalarValue(n.Path), "view": n.View}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	for _, childID := range n.Blocks {
		if child, ok := f.Nodes.Get(childID); ok {
			child.SetParentID(id)
		}
	}
	return id, nil
}

func (f *Factory) buildBlock(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	variantRaw, err := requireField(raw, "variant", path)
	if err != nil {
		return "", err
	}
	n := &ast.Block{Variant: declarative.Scalar(variantRaw).(string)}

	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindBlock
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)

	if n.Children, err = f.optionalIDList(raw, "children", path, id); err != nil {
		return "", err
	}
	n.Extra = make(map[string]ast.PropValue)
	for _, key := range declarative.Keys(raw) {
		switch key {
		case "type", "variant", "children":
			continue
		}
		fieldRaw, _ := declarative.Field(raw, key)
		v, err := f.transformValue(fieldRaw, append(path, key), id)
		if err != nil {
			return "", err
		}
		n.Extra[key] = v
	}

	n.PropsValue = map[string]ast.PropValue{"variant": ast.ScalarValue(n.Variant)}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	for _, childID := range n.Children {
		if child, ok := f.Nodes.Get(childID); ok {
			child.SetParentID(id)
		}
	}
	return id, nil
}

func (f *Factory) buildField(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	codeRaw, err := requireField(raw, "code", path)
	if err != nil {
		return "", err
	}

	n := &ast.FieldBlock{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindField
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)

	// code is scalar-or-node like value/label/hint: a dynamic code lets
	// @self resolve against a cloned subtree instead of a literal string
	// (spec.md §4.4 step 3).
	if n.Code, err = f.transformValue(codeRaw, append(path, "code"), id); err != nil {
		return "", err
	}
	if n.Value, err = f.propField(raw, "value", path, id); err != nil {
		return "", err
	}
	if n.Label, err = f.propField(raw, "label", path, id); err != nil {
		return "", err
	}
	if n.Hint, err = f.propField(raw, "hint", path, id); err != nil {
		return "", err
	}
	if n.Dependent, err = f.propField(raw, "dependent", path, id); err != nil {
		return "", err
	}
	if n.Multiple, err = f.propField(raw, "multiple", path, id); err != nil {
		return "", err
	}
	if n.Items, err = f.propField(raw, "items", path, id); err != nil {
		return "", err
	}
	if n.Validate, err = f.optionalIDList(raw, "validate", path, id); err != nil {
		return "", err
	}
	if n.Formatters, err = f.optionalIDList(raw, "formatters", path, id); err != nil {
		return "", err
	}
	n.Extra = make(map[string]ast.PropValue)
	for _, key := range declarative.Keys(raw) {
		switch key {
		case "type", "code", "value", "label", "hint", "dependent", "multiple", "items", "validate", "formatters":
			continue
		}
		fieldRaw, _ := declarative.Field(raw, key)
		v, err := f.transformValue(fieldRaw, append(path, key), id)
		if err != nil {
			return "", err
		}
		n.Extra[key] = v
	}

	n.PropsValue = map[string]ast.PropValue{
		"code": n.Code, "value": n.Value, "label": n.Label, "hint": n.Hint,
		"dependent": n.Dependent, "multiple": n.Multiple, "items": n.Items,
	}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}
