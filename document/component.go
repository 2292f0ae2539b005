package document

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Component returns a templ.Component that renders d with r.
func Component(d Document, r Renderer) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, r.Render(d))
		return err
	})
}
