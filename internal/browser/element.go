package browser

import (
	"errors"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// rodElement adapts a rod element to the Element interface.
type rodElement struct {
	el      *rod.Element
	timeout time.Duration
}

var _ Element = (*rodElement)(nil)

func (e *rodElement) bound() *rod.Element {
	if e.timeout > 0 {
		return e.el.Timeout(e.timeout)
	}
	return e.el
}

// Tag returns the lower-case tag name.
func (e *rodElement) Tag() (string, error) {
	obj, err := e.bound().Eval(`() => this.tagName`)
	if err != nil {
		return "", err
	}
	return strings.ToLower(jsonString(obj.Value)), nil
}

// Visible reports whether the node is rendered.
func (e *rodElement) Visible() (bool, error) {
	return e.bound().Visible()
}

// Enabled reports whether the node accepts interaction.
func (e *rodElement) Enabled() (bool, error) {
	prop, err := e.bound().Property("disabled")
	if err != nil {
		return false, err
	}
	return !prop.Bool(), nil
}

// Editable reports whether the node accepts text input.
func (e *rodElement) Editable() (bool, error) {
	obj, err := e.bound().Eval(`() => !(this.readOnly || this.disabled)`)
	if err != nil {
		return false, err
	}
	return obj.Value.Bool(), nil
}

// Interactable reports whether the node can receive a click right now.
// Invisible or covered nodes answer false without error; anything else is a
// probe failure.
func (e *rodElement) Interactable() (bool, error) {
	_, err := e.bound().Interactable()
	return interactableFromErr(err)
}

// interactableFromErr classifies rod's not-interactable error family
// (invisible shape, covered, pointer-events none) as a false answer rather
// than a probe failure. All of them unwrap to ErrNotInteractable.
func interactableFromErr(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	var notInteractable *rod.ErrNotInteractable
	if errors.As(err, &notInteractable) {
		return false, nil
	}
	return false, err
}

// Attribute returns an attribute value and whether it is present.
func (e *rodElement) Attribute(name string) (string, bool, error) {
	val, err := e.bound().Attribute(name)
	if err != nil {
		return "", false, err
	}
	if val == nil {
		return "", false, nil
	}
	return *val, true, nil
}

// Text returns the node's visible text.
func (e *rodElement) Text() (string, error) {
	return e.bound().Text()
}

// EvalString runs a JS function bound to the node and stringifies the result.
func (e *rodElement) EvalString(js string) (string, error) {
	obj, err := e.bound().Eval(js)
	if err != nil {
		return "", err
	}
	return jsonString(obj.Value), nil
}

// Click performs a left click.
func (e *rodElement) Click() error {
	return e.bound().Click(proto.InputMouseButtonLeft, 1)
}

// Focus gives the node keyboard focus.
func (e *rodElement) Focus() error {
	return e.bound().Focus()
}

// Input replaces the node's current text with the given text. Any existing
// value is selected first so typing overwrites it.
func (e *rodElement) Input(text string) error {
	el := e.bound()
	_ = el.SelectAllText()
	return el.Input(text)
}
