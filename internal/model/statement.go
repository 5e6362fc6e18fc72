package model

import "go/token"

// Statement is one node of a method body.
type Statement interface {
	Pos() token.Pos
	stmt()
}

// Block is a sequence of statements.
type Block struct {
	Statements []Statement
	Position   token.Pos
}

// ExpressionStatement evaluates an expression for its effects, typically a call.
type ExpressionStatement struct {
	Expr     Expression
	Position token.Pos
}

// Assignment stores Value into Target.
type Assignment struct {
	Target   Variable
	Value    Expression
	Position token.Pos
}

// ContentAssignment stores into the content of Target without reassigning it:
// x[i] = v, m[k] = v, *p = v, or p.f = v for a p other than the receiver.
type ContentAssignment struct {
	Target   Variable
	Value    Expression
	Position token.Pos
}

// Return leaves the method, with a nil Value when nothing is returned.
type Return struct {
	Value    Expression
	Position token.Pos
}

// Throw leaves the method abruptly; in Go, a call to panic.
type Throw struct {
	Value    Expression
	Position token.Pos
}

// If is a two-way branch; Else may be nil.
type If struct {
	Condition Expression
	Then      *Block
	Else      *Block
	Position  token.Pos
}

// Loop repeats Body while Condition holds; a nil Condition loops until an exit.
type Loop struct {
	Condition Expression
	Body      *Block
	Position  token.Pos
}

func (s *Block) Pos() token.Pos              { return s.Position }
func (s *ExpressionStatement) Pos() token.Pos { return s.Position }
func (s *Assignment) Pos() token.Pos          { return s.Position }
func (s *ContentAssignment) Pos() token.Pos   { return s.Position }
func (s *Return) Pos() token.Pos              { return s.Position }
func (s *Throw) Pos() token.Pos               { return s.Position }
func (s *If) Pos() token.Pos                  { return s.Position }
func (s *Loop) Pos() token.Pos                { return s.Position }

func (*Block) stmt()               {}
func (*ExpressionStatement) stmt() {}
func (*Assignment) stmt()          {}
func (*ContentAssignment) stmt()   {}
func (*Return) stmt()              {}
func (*Throw) stmt()               {}
func (*If) stmt()                  {}
func (*Loop) stmt()                {}

// SubBlocks returns the blocks nested directly in s, in source order.
func SubBlocks(s Statement) []*Block {
	switch x := s.(type) {
	case *Block:
		return []*Block{x}
	case *If:
		if x.Else != nil {
			return []*Block{x.Then, x.Else}
		}
		return []*Block{x.Then}
	case *Loop:
		return []*Block{x.Body}
	}
	return nil
}
