package stimulus

import "fmt"

// Presentable is a stimulus resolved from a Spec, ready to hand to a
// presentation toolkit. Toolkits know how to draw Text, Image and Blank; any
// other presentable is drawn from its Describe output.
type Presentable interface {
	Describe() string
}

// Text is a block of text.
type Text struct {
	Content  string
	Position Position
}

func (t *Text) Describe() string { return t.Content }

// Image is a picture loaded from an asset path.
type Image struct {
	Path     string
	Position Position
}

func (i *Image) Describe() string { return fmt.Sprintf("[image %s]", i.Path) }

// Blank clears the screen.
type Blank struct{}

func (*Blank) Describe() string { return "" }
