package fluxion

// Desugar rewrites every bare-command statement into its canonical call
// form: "probe url=target, timeout=5" becomes "probe({url: target, timeout: 5})".
// The rewrite is purely structural, touches no values, and is idempotent
// because the output tree contains no CommandNode to rewrite again.
func Desugar(stmts []Node) ([]Node, error) {
	out := make([]Node, len(stmts))
	for i, stmt := range stmts {
		d, err := desugarNode(stmt)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func desugarNode(n Node) (Node, error) {
	switch node := n.(type) {
	case *CommandNode:
		arg := &MapNode{Entries: node.Pairs}
		return &CallNode{Name: node.Name, Args: []Node{arg}, position: node.position}, nil
	case *BlockNode:
		stmts, err := Desugar(node.Stmts)
		if err != nil {
			return nil, err
		}
		return &BlockNode{Stmts: stmts}, nil
	case *IfNode:
		then, err := desugarBlock(node.Then)
		if err != nil {
			return nil, err
		}
		var elseNode Node
		if node.Else != nil {
			elseNode, err = desugarNode(node.Else)
			if err != nil {
				return nil, err
			}
		}
		return &IfNode{Condition: node.Condition, Then: then, Else: elseNode}, nil
	case *ForNode:
		body, err := desugarBlock(node.Body)
		if err != nil {
			return nil, err
		}
		return &ForNode{Var: node.Var, Iterable: node.Iterable, Body: body, position: node.position}, nil
	case *FuncNode:
		body, err := desugarBlock(node.Body)
		if err != nil {
			return nil, err
		}
		return &FuncNode{Name: node.Name, Params: node.Params, Body: body}, nil
	}
	return n, nil
}

func desugarBlock(b *BlockNode) (*BlockNode, error) {
	node, err := desugarNode(b)
	if err != nil {
		return nil, err
	}
	return node.(*BlockNode), nil
}
