// Package dom is the UI tree the binding engine mutates. The compiler only
// depends on the Node and Document interfaces; HTMLDocument implements them
// on top of golang.org/x/net/html.
package dom

import "errors"

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement  Kind = iota // <div>, <input>, etc.
	KindText                 // Plain text node
	KindComment              // <!-- -->
	KindDoctype              // <!DOCTYPE>
	KindFragment             // Detached container, children move on append
	KindDocument             // Tree root
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComment:
		return "Comment"
	case KindDoctype:
		return "Doctype"
	case KindFragment:
		return "Fragment"
	case KindDocument:
		return "Document"
	default:
		return "Unknown"
	}
}

var (
	ErrForeignNode = errors.New("node belongs to another document")
	ErrNotChild    = errors.New("node is not a child")
	ErrNotElement  = errors.New("operation requires an element or container")
)

// Attribute is a single name/value pair on an element.
type Attribute struct {
	Name  string
	Value string
}

// Event is passed to listeners. Target is filled in by Dispatch when empty.
type Event struct {
	Type   string
	Target Node
	Data   any
}

type Listener func(e *Event) error

// Node is the primitive set the compiler needs from a UI tree.
type Node interface {
	Kind() Kind
	Tag() string

	Attributes() []Attribute
	Attribute(name string) (string, bool)
	SetAttribute(name, value string)

	Parent() Node
	Children() []Node
	// AppendChild moves child under this node. Appending a fragment moves
	// the fragment's children instead, in order.
	AppendChild(child Node) error
	RemoveChild(child Node) error
	// CloneNode returns a detached copy, with its subtree when deep is set.
	// Live values are copied, listeners are not.
	CloneNode(deep bool) Node

	TextContent() string
	SetTextContent(text string)
	SetInnerHTML(markup string) error

	// Value is the live value property of a control, distinct from its
	// value attribute once set.
	Value() string
	SetValue(value string)

	AddEventListener(typ string, l Listener)
	Dispatch(e *Event) error

	OwnerDocument() Document
}

type Document interface {
	CreateFragment() Node
	// QuerySelector returns the first match in document order, or nil.
	QuerySelector(selector string) Node
}
