package models

import "github.com/PuerkitoBio/goquery"

type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

type CodeBlock struct {
	Language string
	Code     string
}

type Message struct {
	Role       Role
	Content    string
	CodeBlocks []CodeBlock
	Position   int
}

// Candidate is a located message element before its text is derived.
// The element is borrowed from the snapshot and must not be mutated.
type Candidate struct {
	Role    Role
	Element *goquery.Selection
}
