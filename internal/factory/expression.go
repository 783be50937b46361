package factory

import (
	"fmt"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/declarative"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// buildReference builds a path-based pointer and, where the first two
// segments are literal, interns the pseudo-node producer they resolve to
// (spec.md §3.1, §4.6). `answers/@self` is left unresolved here —
// ResolveSelfReferences fixes it up once the enclosing field is known
// (spec.md §4.4).
func (f *Factory) buildReference(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	pathRaw, err := requireField(raw, "path", path)
	if err != nil {
		return "", err
	}

	id := f.Gen.Next(ids.CategoryCompileAST)
	elems := declarative.Elements(pathRaw)
	segs := make([]ast.PathSegment, len(elems))
	for i, el := range elems {
		if declarative.IsPrimitive(el) {
			segs[i] = ast.PathSegment{Literal: fmt.Sprint(declarative.Scalar(el))}
			continue
		}
		v, err := f.transformValue(el, append(path, "path", indexSegment(i)), id)
		if err != nil {
			return "", err
		}
		segs[i] = ast.PathSegment{NodeID: v.NodeID}
	}

	n := &ast.Reference{Path: segs}
	n.IDValue = id
	n.KindValue = ast.KindReference
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)
	n.Root = f.resolveReferenceRoot(segs)
	n.PropsValue = map[string]ast.PropValue{}

	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

// resolveReferenceRoot interns (or reuses) the pseudo-node a literal
// `namespace/baseCode` path prefix resolves to. `item`/`index`/unresolved
// `@self` references have no producer and keep a zero Root.
func (f *Factory) resolveReferenceRoot(segs []ast.PathSegment) ids.ID {
	if len(segs) < 2 || segs[0].IsNode() || segs[1].IsNode() {
		return ""
	}
	namespace, code := segs[0].Literal, segs[1].Literal
	switch namespace {
	case "answers":
		if code == "@self" {
			return ""
		}
		return f.internPseudo(ast.KindPseudoAnswer, code, func(id ids.ID) ast.Node {
			return &ast.Answer{Base: ast.Base{IDValue: id, KindValue: ast.KindPseudoAnswer}, BaseFieldCode: code}
		})
	case "data":
		return f.internPseudo(ast.KindPseudoData, code, func(id ids.ID) ast.Node {
			return &ast.Data{Base: ast.Base{IDValue: id, KindValue: ast.KindPseudoData}, BaseProperty: code}
		})
	case "post":
		return f.internPseudo(ast.KindPseudoPost, code, func(id ids.ID) ast.Node {
			return &ast.Post{Base: ast.Base{IDValue: id, KindValue: ast.KindPseudoPost}, BaseFieldCode: code}
		})
	case "query":
		return f.internPseudo(ast.KindPseudoQuery, code, func(id ids.ID) ast.Node {
			return &ast.Query{Base: ast.Base{IDValue: id, KindValue: ast.KindPseudoQuery}, ParamName: code}
		})
	case "params":
		return f.internPseudo(ast.KindPseudoParams, code, func(id ids.ID) ast.Node {
			return &ast.Params{Base: ast.Base{IDValue: id, KindValue: ast.KindPseudoParams}, ParamName: code}
		})
	default:
		return ""
	}
}

func (f *Factory) buildFormat(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	tplRaw, err := requireField(raw, "template", path)
	if err != nil {
		return "", err
	}
	n := &ast.Format{Template: declarative.Scalar(tplRaw).(string)}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindFormat
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)
	if n.Arguments, err = f.optionalIDList(raw, "arguments", path, id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{"template": ast.ScalarValue(n.Template)}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildNext(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Next{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindNext
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)

	var err error
	if n.When, err = f.optionalIDField(raw, "when", path, id); err != nil {
		return "", err
	}
	gotoRaw, err := requireField(raw, "goto", path)
	if err != nil {
		return "", err
	}
	if n.Goto, err = f.transformValue(gotoRaw, append(path, "goto"), id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{"goto": n.Goto}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildIterate(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Iterate{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindIterate
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)

	inputRaw, err := requireField(raw, "input", path)
	if err != nil {
		return "", err
	}
	inputVal, err := f.transformValue(inputRaw, append(path, "input"), id)
	if err != nil {
		return "", err
	}
	n.Input = inputVal.NodeID

	yieldRaw, err := requireField(raw, "yield", path)
	if err != nil {
		return "", err
	}
	n.RawYield, err = f.transformValue(yieldRaw, append(path, "yield"), id)
	if err != nil {
		return "", err
	}
	if n.RawYield.IsNode() {
		n.Yield = []ids.ID{n.RawYield.NodeID}
	} else {
		for _, item := range n.RawYield.List {
			if item.IsNode() {
				n.Yield = append(n.Yield, item.NodeID)
			}
		}
	}

	n.PropsValue = map[string]ast.PropValue{"input": ast.NodeValue(n.Input)}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildValidation(raw string, path []string, parentID ids.ID) (ids.ID, error) {
	n := &ast.Validation{}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindValidation
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)

	whenRaw, err := requireField(raw, "when", path)
	if err != nil {
		return "", err
	}
	whenVal, err := f.transformValue(whenRaw, append(path, "when"), id)
	if err != nil {
		return "", err
	}
	n.When = whenVal.NodeID

	if n.Message, err = f.propField(raw, "message", path, id); err != nil {
		return "", err
	}
	if n.Details, err = f.propField(raw, "details", path, id); err != nil {
		return "", err
	}
	if so, ok := optionalField(raw, "submissionOnly"); ok {
		b, _ := declarative.Scalar(so).(bool)
		n.SubmissionOnly = b
	}

	n.PropsValue = map[string]ast.PropValue{"message": n.Message, "details": n.Details}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Factory) buildFunction(funcType ast.FunctionType, raw string, path []string, parentID ids.ID) (ids.ID, error) {
	nameRaw, err := requireField(raw, "name", path)
	if err != nil {
		return "", err
	}
	n := &ast.Function{FuncType: funcType, Name: declarative.Scalar(nameRaw).(string)}
	id := f.Gen.Next(ids.CategoryCompileAST)
	n.IDValue = id
	n.KindValue = ast.KindFunction
	n.Parent = parentID
	n.Raw = f.Arena.Add(raw)
	if n.Arguments, err = f.optionalIDList(raw, "arguments", path, id); err != nil {
		return "", err
	}
	n.PropsValue = map[string]ast.PropValue{"name": ast.ScalarValue(n.Name)}
	if err := f.Nodes.Register(n, append([]string{}, path...)); err != nil {
		return "", err
	}
	return id, nil
}
