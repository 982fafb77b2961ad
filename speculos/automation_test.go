package speculos

import (
	"reflect"
	"testing"

	json "github.com/bytedance/sonic"
)

func TestConditionEncoding(t *testing.T) {
	got, err := json.Marshal(Condition{Varname: "foo", Value: true})
	if err != nil {
		t.Fatalf("marshal condition: %v", err)
	}
	if string(got) != `["foo",true]` {
		t.Errorf("condition encoded as %s, want [\"foo\",true]", got)
	}
}

func TestActionEncoding(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{"left button press", ButtonAction{Button: ButtonLeft, Pressed: true}, `["button",1,true]`},
		{"right button release", ButtonAction{Button: ButtonRight, Pressed: false}, `["button",2,false]`},
		{"finger touch", FingerAction{X: 150, Y: 320, Touched: true}, `["finger",150,320,true]`},
		{"finger release", FingerAction{X: 0, Y: 0, Touched: false}, `["finger",0,0,false]`},
		{"setbool", SetboolAction{Varname: "seen", Value: true}, `["setbool","seen",true]`},
		{"exit", ExitAction{}, `["exit"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.action)
			if err != nil {
				t.Fatalf("marshal action: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("action encoded as %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRuleOmitsAbsentMatchers(t *testing.T) {
	got, err := json.Marshal(Rule{})
	if err != nil {
		t.Fatalf("marshal rule: %v", err)
	}
	if string(got) != `{"conditions":[],"actions":[]}` {
		t.Errorf("empty rule encoded as %s, absent matcher keys must be omitted", got)
	}
}

func TestRuleEncoding(t *testing.T) {
	rule := NewRule().
		MatchText("Approve").
		When("approved", false).
		Do(ButtonAction{Button: ButtonRight, Pressed: true},
			ButtonAction{Button: ButtonRight, Pressed: false},
			SetboolAction{Varname: "approved", Value: true})

	got, err := json.Marshal(rule)
	if err != nil {
		t.Fatalf("marshal rule: %v", err)
	}
	want := `{"text":"Approve","conditions":[["approved",false]],` +
		`"actions":[["button",2,true],["button",2,false],["setbool","approved",true]]}`
	if string(got) != want {
		t.Errorf("rule encoded as\n%s\nwant\n%s", got, want)
	}
}

func TestRuleCoordinateMatchers(t *testing.T) {
	rule := NewRule().MatchXY(64, 128).Do(ExitAction{})
	got, err := json.Marshal(rule)
	if err != nil {
		t.Fatalf("marshal rule: %v", err)
	}
	want := `{"x":64,"y":128,"conditions":[],"actions":[["exit"]]}`
	if string(got) != want {
		t.Errorf("rule encoded as %s, want %s", got, want)
	}
}

func TestEncodeAutomation(t *testing.T) {
	body, err := encodeAutomation([]Rule{*NewRule().MatchRegexp("^Sign").Do(ExitAction{})})
	if err != nil {
		t.Fatalf("encodeAutomation: %v", err)
	}
	want := `{"version":1,"rules":[{"regexp":"^Sign","conditions":[],"actions":[["exit"]]}]}`
	if string(body) != want {
		t.Errorf("request encoded as\n%s\nwant\n%s", body, want)
	}
}

func TestEncodeAutomationNoRules(t *testing.T) {
	body, err := encodeAutomation(nil)
	if err != nil {
		t.Fatalf("encodeAutomation: %v", err)
	}
	if string(body) != `{"version":1,"rules":[]}` {
		t.Errorf("empty request encoded as %s", body)
	}
}

func TestLoadRules(t *testing.T) {
	src := `[
		{"text":"Approve","conditions":[["approved",false]],
		 "actions":[["button",2,true],["button",2,false],["setbool","approved",true]]},
		{"x":10,"y":20,"conditions":[],"actions":[["finger",10,20,true],["exit"]]}
	]`
	rules, err := LoadRules([]byte(src))
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}

	first := rules[0]
	if first.Text == nil || *first.Text != "Approve" {
		t.Errorf("first rule text = %v, want Approve", first.Text)
	}
	if !reflect.DeepEqual(first.Conditions, []Condition{{Varname: "approved", Value: false}}) {
		t.Errorf("first rule conditions = %v", first.Conditions)
	}
	wantActions := []Action{
		ButtonAction{Button: ButtonRight, Pressed: true},
		ButtonAction{Button: ButtonRight, Pressed: false},
		SetboolAction{Varname: "approved", Value: true},
	}
	if !reflect.DeepEqual(first.Actions, wantActions) {
		t.Errorf("first rule actions = %v, want %v", first.Actions, wantActions)
	}

	second := rules[1]
	if second.X == nil || *second.X != 10 || second.Y == nil || *second.Y != 20 {
		t.Errorf("second rule coordinates = %v/%v", second.X, second.Y)
	}
	if !reflect.DeepEqual(second.Actions, []Action{FingerAction{X: 10, Y: 20, Touched: true}, ExitAction{}}) {
		t.Errorf("second rule actions = %v", second.Actions)
	}
}

func TestLoadRulesMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown tag", `[{"conditions":[],"actions":[["jump",1]]}]`},
		{"button arity", `[{"conditions":[],"actions":[["button",1]]}]`},
		{"exit with payload", `[{"conditions":[],"actions":[["exit",1]]}]`},
		{"bad button code", `[{"conditions":[],"actions":[["button",3,true]]}]`},
		{"condition arity", `[{"conditions":[["a",true,1]],"actions":[]}]`},
		{"condition object", `[{"conditions":[{"varname":"a","value":true}],"actions":[]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRules([]byte(tt.src)); err == nil {
				t.Errorf("LoadRules(%s) should fail", tt.src)
			}
		})
	}
}
