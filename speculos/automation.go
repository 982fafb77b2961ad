package speculos

import (
	stdjson "encoding/json"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/samber/lo"
)

// automationVersion is the protocol version field of every /automation
// request body.
const automationVersion = 1

// Rule is one automation trigger. The four matcher fields are optional; a nil
// field means "do not constrain on this field" and is omitted from the wire
// form entirely, which the emulator treats differently from an explicit null.
type Rule struct {
	// Text matches the displayed text exactly.
	Text *string `json:"text,omitempty"`
	// Regexp matches the displayed text against a regular expression.
	Regexp *string `json:"regexp,omitempty"`
	// X matches the screen X coordinate.
	X *int `json:"x,omitempty"`
	// Y matches the screen Y coordinate.
	Y *int `json:"y,omitempty"`
	// Conditions gates the rule on emulator-side boolean variables.
	Conditions []Condition `json:"conditions"`
	// Actions run in order when the rule fires.
	Actions []Action `json:"actions"`
}

// NewRule returns an empty rule to be filled with the Match*/When/Do helpers.
func NewRule() *Rule {
	return &Rule{}
}

// MatchText constrains the rule to screens showing exactly text.
func (r *Rule) MatchText(text string) *Rule {
	r.Text = lo.ToPtr(text)
	return r
}

// MatchRegexp constrains the rule to screen text matching expr.
func (r *Rule) MatchRegexp(expr string) *Rule {
	r.Regexp = lo.ToPtr(expr)
	return r
}

// MatchXY constrains the rule to the given screen coordinates.
func (r *Rule) MatchXY(x, y int) *Rule {
	r.X = lo.ToPtr(x)
	r.Y = lo.ToPtr(y)
	return r
}

// When adds a variable-state condition.
func (r *Rule) When(varname string, value bool) *Rule {
	r.Conditions = append(r.Conditions, Condition{Varname: varname, Value: value})
	return r
}

// Do appends actions to run when the rule fires.
func (r *Rule) Do(actions ...Action) *Rule {
	r.Actions = append(r.Actions, actions...)
	return r
}

// MarshalJSON normalizes nil condition/action lists to empty arrays; the
// emulator expects both keys to be present on every rule.
func (r Rule) MarshalJSON() ([]byte, error) {
	type alias Rule
	a := alias(r)
	if a.Conditions == nil {
		a.Conditions = []Condition{}
	}
	if a.Actions == nil {
		a.Actions = []Action{}
	}
	return json.Marshal(a)
}

func (r *Rule) UnmarshalJSON(b []byte) error {
	var w struct {
		Text       *string          `json:"text"`
		Regexp     *string          `json:"regexp"`
		X          *int             `json:"x"`
		Y          *int             `json:"y"`
		Conditions []Condition      `json:"conditions"`
		Actions    []actionEnvelope `json:"actions"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Rule{
		Text:       w.Text,
		Regexp:     w.Regexp,
		X:          w.X,
		Y:          w.Y,
		Conditions: w.Conditions,
		Actions: lo.Map(w.Actions, func(e actionEnvelope, _ int) Action {
			return e.Action
		}),
	}
	return nil
}

// Condition gates a rule on an emulator-side boolean variable. On the wire it
// is a two-element array [varname, value], not an object; the emulator
// indexes it by position.
type Condition struct {
	Varname string
	Value   bool
}

func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Varname, c.Value})
}

func (c *Condition) UnmarshalJSON(b []byte) error {
	var parts []stdjson.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("condition must have 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &c.Varname); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &c.Value)
}

// Action is one effect applied when a rule fires. Each variant encodes as an
// array whose first element is the variant tag; arity and field order per
// variant are fixed protocol contracts, the receiving side indexes
// positionally.
type Action interface {
	isAction()
	stdjson.Marshaler
}

// ButtonAction presses or releases a button.
type ButtonAction struct {
	Button  Button
	Pressed bool
}

// FingerAction touches or releases a point on the screen.
type FingerAction struct {
	X       int
	Y       int
	Touched bool
}

// SetboolAction assigns an emulator-side boolean variable.
type SetboolAction struct {
	Varname string
	Value   bool
}

// ExitAction terminates the emulator.
type ExitAction struct{}

func (ButtonAction) isAction()  {}
func (FingerAction) isAction()  {}
func (SetboolAction) isAction() {}
func (ExitAction) isAction()    {}

func (a ButtonAction) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{"button", a.Button.code(), a.Pressed})
}

func (a FingerAction) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{"finger", a.X, a.Y, a.Touched})
}

func (a SetboolAction) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{"setbool", a.Varname, a.Value})
}

func (a ExitAction) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{"exit"})
}

// actionEnvelope decodes the tag-prefixed array form back into the matching
// Action variant, for rules loaded from files.
type actionEnvelope struct {
	Action
}

func (e *actionEnvelope) UnmarshalJSON(b []byte) error {
	var parts []stdjson.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("action array is empty")
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return fmt.Errorf("action tag: %w", err)
	}

	fields := func(dst ...any) error {
		if len(parts) != len(dst)+1 {
			return fmt.Errorf("%s action must have %d elements, got %d", tag, len(dst)+1, len(parts))
		}
		for i, d := range dst {
			if err := json.Unmarshal(parts[i+1], d); err != nil {
				return fmt.Errorf("%s action field %d: %w", tag, i+1, err)
			}
		}
		return nil
	}

	switch tag {
	case "button":
		var a ButtonAction
		var code int
		if err := fields(&code, &a.Pressed); err != nil {
			return err
		}
		switch code {
		case 1:
			a.Button = ButtonLeft
		case 2:
			a.Button = ButtonRight
		default:
			return fmt.Errorf("unknown button code %d", code)
		}
		e.Action = a
	case "finger":
		var a FingerAction
		if err := fields(&a.X, &a.Y, &a.Touched); err != nil {
			return err
		}
		e.Action = a
	case "setbool":
		var a SetboolAction
		if err := fields(&a.Varname, &a.Value); err != nil {
			return err
		}
		e.Action = a
	case "exit":
		if err := fields(); err != nil {
			return err
		}
		e.Action = ExitAction{}
	default:
		return fmt.Errorf("unknown action tag: %q", tag)
	}
	return nil
}

type automationRequest struct {
	Version int    `json:"version"`
	Rules   []Rule `json:"rules"`
}

func encodeAutomation(rules []Rule) ([]byte, error) {
	if rules == nil {
		rules = []Rule{}
	}
	body, err := json.Marshal(automationRequest{Version: automationVersion, Rules: rules})
	if err != nil {
		return nil, fmt.Errorf("%w: encode automation request: %w", ErrTransport, err)
	}
	return body, nil
}

// LoadRules reads a list of rules from their wire-format JSON encoding.
func LoadRules(b []byte) ([]Rule, error) {
	var rules []Rule
	if err := json.Unmarshal(b, &rules); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return rules, nil
}
