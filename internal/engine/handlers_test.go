package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/aretw0/weave/internal/engine"
	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a provider that remembers every prompt it was sent.
type recorder struct {
	prompts []string
	reply   func(n int, prompt string) (string, error)
}

func (r *recorder) Query(_ context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	return r.reply(len(r.prompts), prompt)
}

func replyWith(text string) *recorder {
	return &recorder{reply: func(int, string) (string, error) { return text, nil }}
}

func failing() *recorder {
	return &recorder{reply: func(int, string) (string, error) {
		return "", fmt.Errorf("%w: provider timeout", domain.ErrResourceUnavailable)
	}}
}

func TestUserAsk(t *testing.T) {
	h := newHarness(t, `{"steps":[
		{"step":"1","type":"user_ask","prompt":"Name?","save_to":"name","next_step":2},
		{"step":"2","type":"display","message":"Hello {{name}}","next_step":"EXIT"}
	]}`, "Casey\n")

	require.NoError(t, h.run())
	assert.Equal(t, "Casey", h.get(t, "name"))
	assert.Equal(t, "Name? Hello Casey\n", h.out.String())
}

func TestUserAsk_DefaultAndAlias(t *testing.T) {
	h := newHarness(t, `{"steps":[
		{"step":"1","type":"user_input","prompt":"City?\n","save_to":"city","default":"{{home}}","next_step":"EXIT"}
	]}`, "\n", engine.WithVariables(map[string]string{"home": "Lisbon"}))

	require.NoError(t, h.run())
	assert.Equal(t, "Lisbon", h.get(t, "city"))
	assert.Equal(t, "City?\n", h.out.String())
}

func TestUserAsk_InputErrors(t *testing.T) {
	src := `{"steps":[{"step":"1","type":"user_ask","prompt":"Name?","save_to":"name","next_step":"EXIT"}]}`

	err := newHarness(t, src, "").run()
	assert.ErrorIs(t, err, domain.ErrInputInvalid)
	assert.ErrorIs(t, err, io.EOF)

	err = newHarness(t, src, "bad \xff\n").run()
	assert.ErrorIs(t, err, domain.ErrInputInvalid)

	err = newHarness(t, `{"steps":[{"step":"1","type":"user_ask","prompt":"Name?","next_step":"EXIT"}]}`, "x\n").run()
	var missing *domain.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "save_to", missing.Field)
}

func TestDisplay_Renderer(t *testing.T) {
	render := func(s string) (string, error) { return "** " + strings.ToUpper(s) + " **\n\n", nil }
	h := newHarness(t, `{"steps":[{"step":"1","type":"display","message":"hi {{n}}","next_step":"EXIT"}]}`, "",
		engine.WithRenderer(render), engine.WithVariables(map[string]string{"n": "casey"}))
	require.NoError(t, h.run())
	assert.Equal(t, "** HI CASEY **\n", h.out.String())

	broken := func(string) (string, error) { return "", errors.New("no terminal") }
	h = newHarness(t, `{"steps":[{"step":"1","type":"display","message":"raw","next_step":"EXIT"}]}`, "",
		engine.WithRenderer(broken))
	require.NoError(t, h.run())
	assert.Equal(t, "raw\n", h.out.String())
}

func TestDisplay_UnresolvedPlaceholdersLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newHarness(t, `{"steps":[{"step":"1","type":"display","message":"hi {{n}} {{ghost}}","next_step":"EXIT"}]}`, "",
		engine.WithLogger(logger), engine.WithVariables(map[string]string{"n": "casey"}))

	require.NoError(t, h.run())
	assert.Equal(t, "hi casey {{ghost}}\n", h.out.String())
	assert.Contains(t, logs.String(), "unresolved placeholders")
	assert.Contains(t, logs.String(), "names=[ghost]")
	assert.Contains(t, logs.String(), "field=message")
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "reports", "{{name}}.json")
	h := newHarness(t, `{"steps":[{"step":"1","type":"save_file","destination":`+strconv.Quote(dest)+`,
		"data":{"user":"{{name}}","at":"{{timestamp}}","unknown":"{{missing}}",
		        "nested":{"list":["{{name}}",1,true,{"deep":"hi {{name}}"}]},"count":3},
		"next_step":"EXIT"}]}`, "", engine.WithVariables(map[string]string{"name": "casey"}))

	require.NoError(t, h.run())

	stamp := h.get(t, domain.KeyTimestamp)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}$`), stamp)

	raw, err := os.ReadFile(filepath.Join(dir, "reports", "casey.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "\n"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, map[string]any{
		"user":    "casey",
		"at":      stamp,
		"unknown": "{{missing}}",
		"nested": map[string]any{
			"list": []any{"casey", float64(1), true, map[string]any{"deep": "hi casey"}},
		},
		"count": float64(3),
	}, got)
}

func TestSaveFile_KeepsNumbersAndKeyOrder(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "ids.json")
	h := newHarness(t, `{"steps":[{"step":"1","type":"save_file","destination":`+strconv.Quote(dest)+`,
		"data":{"id":9007199254740993, "big":12345678901234567890, "z":"a <{{name}}>", "a":[1.50, null, "b"]},
		"next_step":"EXIT"}]}`, "", engine.WithVariables(map[string]string{"name": "casey"}))

	require.NoError(t, h.run())

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, `{"id":9007199254740993,"big":12345678901234567890,"z":"a <casey>","a":[1.50,null,"b"]}`+"\n", string(raw))
}

func TestSaveFile_KeepsExistingTimestamp(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out_{{timestamp}}.json")
	h := newHarness(t, `{"steps":[{"step":"1","type":"save_file","destination":`+strconv.Quote(dest)+`,
		"data":{},"next_step":"EXIT"}]}`, "", engine.WithVariables(map[string]string{domain.KeyTimestamp: "fixed"}))

	require.NoError(t, h.run())
	assert.FileExists(t, filepath.Join(filepath.Dir(dest), "out_fixed.json"))
}

func TestSaveFile_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		step string
		kind error
	}{
		{"destination is a directory", `"destination":` + strconv.Quote(dir) + `,"data":{}`, domain.ErrSystem},
		{"data not an object", `"destination":"x.json","data":[1]`, domain.ErrProtocolFormat},
		{"missing data", `"destination":"x.json"`, domain.ErrProtocolFormat},
		{"missing destination", `"data":{}`, domain.ErrProtocolFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, `{"steps":[{"step":"1","type":"save_file",`+tc.step+`,"next_step":"EXIT"}]}`, "")
			err := h.run()
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.kind, domain.Classify(err))
		})
	}
}

const chooseDoc = `{"steps":[
	{"step":"1","type":"user_choose","prompt":"Continue, {{name}}?","save_to":"choice","next_step":"4","options":[
		{"label":"Yes","value":"y","next_step":"2"},
		{"label":"No","value":"n","next_step":"3"},
		{"label":"Later"}
	]},
	{"step":"2","type":"display","message":"yes path","next_step":"EXIT"},
	{"step":"3","type":"display","message":"no path","next_step":"EXIT"},
	{"step":"4","type":"display","message":"later path","next_step":"EXIT"}
]}`

func TestUserChoose(t *testing.T) {
	cases := []struct {
		input  string
		next   string
		choice string
	}{
		{"1\n", "2", "y"},
		{"2\n", "3", "n"},
		{"y\n", "2", "y"},
		{"NO\n", "3", "n"},
		{"3\n", "4", "Later"},
		{"later\n", "4", "Later"},
		{"7\nmaybe\n n \n", "3", "n"},
	}
	for _, tc := range cases {
		t.Run(strings.TrimSpace(tc.input), func(t *testing.T) {
			h := newHarness(t, chooseDoc, tc.input, engine.WithVariables(map[string]string{"name": "Casey"}))
			require.NoError(t, h.ctrl.ExecuteCurrentStep(context.Background()))
			assert.Equal(t, tc.next, h.ctrl.CurrentStepID())
			assert.Equal(t, tc.choice, h.get(t, "choice"))
			assert.True(t, strings.HasPrefix(h.out.String(), "Continue, Casey?\n  1) Yes\n  2) No\n  3) Later\n> "))
		})
	}
}

func TestUserChoose_InvalidAttempts(t *testing.T) {
	h := newHarness(t, chooseDoc, "x\n0\nmaybe\n2\n")

	err := h.run()
	assert.ErrorIs(t, err, domain.ErrInputInvalid)
	assert.Equal(t, "1", h.ctrl.CurrentStepID())
	assert.Equal(t, 2, strings.Count(h.out.String(), "Invalid choice"))
	assert.Contains(t, h.out.String(), `Invalid choice "x", enter 1-3.`)
	assert.False(t, h.ctrl.Variables().Has("choice"))
}

func TestUserChoose_MalformedOptions(t *testing.T) {
	for _, opts := range []string{`[]`, `"yes"`, `[{"next_step":"EXIT"}]`, `[{"label":"a"}]`} {
		h := newHarness(t, `{"steps":[{"step":"1","type":"user_choose","prompt":"?","options":`+opts+`}]}`, "1\n")
		assert.ErrorIs(t, h.run(), domain.ErrProtocolFormat, opts)
	}
}

const personaDoc = `"personas":{"default":"mentor","mentor":{"role":"coach","style":"warm","greeting":"Welcome back!"},
	"critic":{"name":"Rex","role":"reviewer"}}`

func TestCIAsk(t *testing.T) {
	src := `{` + personaDoc + `,"steps":[
		{"step":"1","type":"ci_ask","prompt":"Name, {{title}}?","save_to":"name","next_step":"EXIT"}
	]}`
	vars := engine.WithVariables(map[string]string{"title": "friend"})

	p := replyWith("  What should I call you?\n")
	h := newHarness(t, src, "Casey\n", engine.WithProvider(p), vars)
	require.NoError(t, h.run())
	assert.Equal(t, "Casey", h.get(t, "name"))
	assert.Equal(t, "What should I call you? ", h.out.String())
	require.Len(t, p.prompts, 1)
	assert.True(t, strings.HasPrefix(p.prompts[0], "You are mentor, a coach. Your style is: warm.\n\n"))
	assert.Contains(t, p.prompts[0], "Name, friend?")

	h = newHarness(t, src, "Robin\n", engine.WithProvider(failing()), vars)
	require.NoError(t, h.run())
	assert.Equal(t, "Name, friend? ", h.out.String())
	assert.Equal(t, "Robin", h.get(t, "name"))

	h = newHarness(t, src, "Sam\n", vars)
	require.NoError(t, h.run())
	assert.Equal(t, "Name, friend? ", h.out.String())
}

func TestCIAnalyze(t *testing.T) {
	src := `{` + personaDoc + `,"steps":[
		{"step":"1","type":"ci_analyze","persona":"critic","instruction":"Review {{topic}}","input":"{{draft}}",
		 "save_to":"review","display":true,"next_step":"EXIT"}
	]}`
	vars := engine.WithVariables(map[string]string{"topic": "the plan", "draft": "ship friday"})

	p := replyWith("Looks risky.")
	h := newHarness(t, src, "", engine.WithProvider(p), vars)
	require.NoError(t, h.run())
	assert.Equal(t, "Looks risky.", h.get(t, "review"))
	assert.Equal(t, "Looks risky.\n", h.out.String())
	assert.Equal(t, "You are Rex, a reviewer.\n\nReview the plan\n\nship friday", p.prompts[0])

	h = newHarness(t, src, "", engine.WithProvider(failing()), vars)
	require.NoError(t, h.run())
	var placeholder engine.AnalysisPlaceholder
	require.NoError(t, json.Unmarshal([]byte(h.get(t, "review")), &placeholder))
	assert.Equal(t, "unavailable", placeholder.Status)
	assert.Contains(t, placeholder.Error, "provider timeout")
	assert.Empty(t, h.out.String())

	h = newHarness(t, `{"steps":[{"step":"1","type":"ci_analyze","save_to":"x","next_step":"EXIT"}]}`, "")
	err := h.run()
	var missing *domain.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "prompt", missing.Field)
}

func TestCIPresent(t *testing.T) {
	src := `{"steps":[{"step":"1","type":"ci_present","message":"Done, {{name}}.","save_to":"said","next_step":"EXIT"}]}`
	vars := engine.WithVariables(map[string]string{"name": "Casey"})

	h := newHarness(t, src, "", engine.WithProvider(replyWith("All wrapped up, Casey!")), vars)
	require.NoError(t, h.run())
	assert.Equal(t, "All wrapped up, Casey!\n", h.out.String())
	assert.Equal(t, "All wrapped up, Casey!", h.get(t, "said"))

	h = newHarness(t, src, "", engine.WithProvider(replyWith("   ")), vars)
	require.NoError(t, h.run())
	assert.Equal(t, "Done, Casey.\n", h.out.String())
}

func TestCIAskSeries(t *testing.T) {
	src := `{"steps":[{"step":"1","type":"ci_ask_series","save_to":"answers","next_step":"EXIT","questions":[
		{"id":"lang","question":"Language?"},
		{"question":"Editor for {{answers.lang}}?"},
		{"id":7,"question":"Years?"}
	]}]}`

	h := newHarness(t, src, "Go\nvim\n3\n")
	require.NoError(t, h.run())
	assert.Equal(t, "Go", h.get(t, "answers.lang"))
	assert.Equal(t, "vim", h.get(t, "answers.q2"))
	assert.Equal(t, "3", h.get(t, "answers.7"))
	assert.Equal(t, "Language? Editor for Go? Years? ", h.out.String())

	conversational := strings.Replace(src, `"save_to"`, `"conversational":true,"save_to"`, 1)
	p := &recorder{reply: func(n int, _ string) (string, error) { return fmt.Sprintf("Q%d?", n), nil }}
	h = newHarness(t, conversational, "a\nb\nc\n", engine.WithProvider(p))
	require.NoError(t, h.run())
	assert.Len(t, p.prompts, 3)
	assert.Equal(t, "Q1? Q2? Q3? ", h.out.String())

	h = newHarness(t, `{"steps":[{"step":"1","type":"ci_ask_series","save_to":"a","questions":[{"id":"x"}],"next_step":"EXIT"}]}`, "y\n")
	assert.ErrorIs(t, h.run(), domain.ErrProtocolFormat)
}

func TestUserCIChat(t *testing.T) {
	src := `{` + personaDoc + `,"steps":[
		{"step":"1","type":"user_ci_chat","save_to":"chat","next_step":"EXIT"}
	]}`
	p := &recorder{reply: func(n int, _ string) (string, error) { return fmt.Sprintf(" reply %d ", n), nil }}

	h := newHarness(t, src, "hello\nhow?\nexit\nignored\n", engine.WithProvider(p),
		engine.WithVariables(map[string]string{"chat": "earlier\n"}))
	require.NoError(t, h.run())

	require.Len(t, p.prompts, 2)
	assert.True(t, strings.HasPrefix(p.prompts[0], "You are mentor, a coach."))
	assert.True(t, strings.HasSuffix(p.prompts[1], "User: hello\nAssistant: reply 1\nUser: how?\nAssistant:"))
	assert.Equal(t, "earlier\nUser: hello\nAssistant: reply 1\nUser: how?\nAssistant: reply 2\n", h.get(t, "chat"))
	assert.Equal(t, "Welcome back!\n> reply 1\n> reply 2\n> ", h.out.String())
}

func TestUserCIChat_Endings(t *testing.T) {
	src := `{"steps":[{"step":"1","type":"user_ci_chat","prompt":"Ask away","max_turns":2,"save_to":"chat","next_step":"EXIT"}]}`

	// End of input closes the chat.
	p := replyWith("ok")
	h := newHarness(t, src, "one\n", engine.WithProvider(p))
	require.NoError(t, h.run())
	assert.Len(t, p.prompts, 1)
	assert.True(t, strings.HasPrefix(h.out.String(), "Ask away\n"))

	// max_turns bounds the exchange.
	p = replyWith("ok")
	h = newHarness(t, src, "a\nb\nc\n", engine.WithProvider(p))
	require.NoError(t, h.run())
	assert.Len(t, p.prompts, 2)

	// Leaving at once stores nothing.
	h = newHarness(t, src, "quit\n", engine.WithProvider(replyWith("ok")))
	require.NoError(t, h.run())
	assert.False(t, h.ctrl.Variables().Has("chat"))

	h = newHarness(t, src, "a\n")
	assert.ErrorIs(t, h.run(), domain.ErrResourceUnavailable)

	h = newHarness(t, src, "a\n", engine.WithProvider(failing()))
	assert.ErrorIs(t, h.run(), domain.ErrResourceUnavailable)
}

func TestParallel(t *testing.T) {
	h := newHarness(t, `{"steps":[
		{"step":"1","type":"parallel","parallel_steps":[2,"3"],"save_to":"branches","next_step":"4"},
		{"step":"2","type":"display","message":"two","next_step":"EXIT"},
		{"step":"3","type":"display","message":"three","next_step":"EXIT"},
		{"step":"4","type":"display","message":"four","next_step":"EXIT"}
	]}`, "")

	require.NoError(t, h.run())
	assert.Equal(t, "2,3", h.get(t, "branches"))
	assert.Equal(t, "four\n", h.out.String())
	assert.Equal(t, 2, h.ctrl.StepCount())

	for _, list := range []string{`[]`, `["9"]`, `"2"`} {
		h := newHarness(t, `{"steps":[
			{"step":"1","type":"parallel","parallel_steps":`+list+`,"next_step":"2"},
			{"step":"2","type":"display","message":"two","next_step":"EXIT"}
		]}`, "")
		assert.ErrorIs(t, h.run(), domain.ErrProtocolFormat, list)
	}
}

func TestWorkflowCall(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	write("sub/child.json", `{"workflow_name":"child","steps":[
		{"step":"1","type":"display","message":"child sees {{who}} and not {{secret}}","next_step":"2"},
		{"step":"2","type":"user_ask","prompt":"Color?","save_to":"color","next_step":"EXIT"}
	]}`)
	parent := write("parent.json", `{"workflow_name":"parent","steps":[
		{"step":"1","type":"workflow_call","workflow":"sub/{{child}}.json","input":{"who":"{{name}}","n":3},
		 "output":{"fav":"color","none":"missing"},"save_to":"call","next_step":"2"},
		{"step":"2","type":"display","message":"fav={{fav}} call={{call}}","next_step":"EXIT"}
	]}`)

	var depths []int
	h := newFileHarness(t, parent, "blue\n",
		engine.WithVariables(map[string]string{"name": "Casey", "child": "child", "secret": "s3"}),
		engine.WithLifecycleHooks(domain.LifecycleHooks{
			OnStepStart: func(_ context.Context, e *domain.StepEvent) { depths = append(depths, e.Depth) },
		}))

	require.NoError(t, h.run())
	assert.Equal(t, "child sees Casey and not {{secret}}\nColor? fav=blue call=completed\n", h.out.String())
	assert.Equal(t, "blue", h.get(t, "fav"))
	assert.False(t, h.ctrl.Variables().Has("none"))
	assert.False(t, h.ctrl.Variables().Has("color"))
	assert.Equal(t, []int{0, 1, 1, 0}, depths)
	assert.Equal(t, 2, h.ctrl.StepCount())
}

func TestWorkflowCall_ChildFailure(t *testing.T) {
	docs := map[string]string{
		"broken.json": `{"steps":[{"step":"1","type":"nope","next_step":"EXIT"}]}`,
	}
	h := newHarness(t, `{"steps":[
		{"step":"1","type":"workflow_call","workflow":"broken.json","next_step":"EXIT"}
	]}`, "", engine.WithLoader(memoryLoader(docs, nil)))

	err := h.run()
	assert.ErrorIs(t, err, domain.ErrInputInvalid)
	assert.Contains(t, err.Error(), "workflow broken.json")

	h = newHarness(t, `{"steps":[{"step":"1","type":"workflow_call","workflow":"missing.json","next_step":"EXIT"}]}`, "",
		engine.WithLoader(memoryLoader(docs, nil)))
	assert.ErrorIs(t, h.run(), domain.ErrSystem)
}

func memoryLoader(docs map[string]string, calls *int) engine.LoaderFunc {
	return func(path string) (*document.Document, error) {
		if calls != nil {
			*calls++
		}
		src, ok := docs[filepath.Base(path)]
		if !ok {
			return nil, fmt.Errorf("%w: %s not found", domain.ErrSystem, path)
		}
		return document.Parse([]byte(src))
	}
}

// chain builds level0..levelN where each level calls the next and the last displays.
func chain(n int) map[string]string {
	docs := make(map[string]string, n+1)
	for i := 0; i < n; i++ {
		docs[fmt.Sprintf("level%d.json", i)] = fmt.Sprintf(
			`{"steps":[{"step":"1","type":"workflow_call","workflow":"level%d.json","next_step":"EXIT"}]}`, i+1)
	}
	docs[fmt.Sprintf("level%d.json", n)] = `{"steps":[{"step":"1","type":"display","message":"bottom","next_step":"EXIT"}]}`
	return docs
}

func TestWorkflowCall_RecursionBound(t *testing.T) {
	for _, max := range []int{1, 3, domain.DefaultMaxRecursionDepth} {
		t.Run(fmt.Sprint(max), func(t *testing.T) {
			limits := engine.WithLimits(engine.Limits{MaxRecursionDepth: max})
			if max == domain.DefaultMaxRecursionDepth {
				limits = engine.WithLimits(engine.Limits{})
			}

			calls := 0
			docs := chain(max)
			h := newHarness(t, docs["level0.json"], "", limits, engine.WithLoader(memoryLoader(docs, &calls)))
			require.NoError(t, h.run())
			assert.Equal(t, "bottom\n", h.out.String())
			assert.Equal(t, max, calls)

			calls = 0
			docs = chain(max + 1)
			h = newHarness(t, docs["level0.json"], "", limits, engine.WithLoader(memoryLoader(docs, &calls)))
			err := h.run()
			assert.ErrorIs(t, err, domain.ErrInputInvalid)
			var limit *domain.LimitError
			require.ErrorAs(t, err, &limit)
			assert.Equal(t, "recursion depth", limit.Limit)
			assert.Equal(t, max, limit.Max)
			assert.Equal(t, max, calls, "the child beyond the bound is never loaded")
			assert.Empty(t, h.out.String())
		})
	}
}

func TestWorkflowCall_SelfRecursion(t *testing.T) {
	docs := map[string]string{
		"self.json": `{"steps":[{"step":"1","type":"workflow_call","workflow":"self.json","next_step":"EXIT"}]}`,
	}
	h := newHarness(t, docs["self.json"], "", engine.WithLoader(memoryLoader(docs, nil)))
	assert.ErrorIs(t, h.run(), domain.ErrInputInvalid)
}

func TestRegistry(t *testing.T) {
	r := engine.DefaultRegistry()
	assert.Len(t, r.Types(), 13)
	assert.True(t, r.Has("user_input"))
	assert.False(t, r.Has("teleport"))

	shapes := map[string]engine.Shape{
		"display": engine.ShapeBasic, "save_file": engine.ShapeBasic, "user_ask": engine.ShapeBasic,
		"user_input": engine.ShapeBasic, "decide": engine.ShapeBranching, "user_choose": engine.ShapeBranching,
		"ci_ask": engine.ShapeInteractive, "ci_analyze": engine.ShapeInteractive, "ci_ask_series": engine.ShapeInteractive,
		"ci_present": engine.ShapeInteractive, "user_ci_chat": engine.ShapeInteractive,
		"workflow_call": engine.ShapeInteractive, "parallel": engine.ShapeInteractive,
	}
	for name, want := range shapes {
		got, ok := r.Shape(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	assert.ErrorIs(t, r.Alias("x", "missing"), domain.ErrInputInvalid)
	assert.Equal(t, "branching", engine.ShapeBranching.String())
}

func TestCustomBranchingHandler(t *testing.T) {
	r := engine.DefaultRegistry()
	r.RegisterBranching("coin", engine.BranchingFunc(func(_ context.Context, s *engine.Step) (string, error) {
		side, _ := s.Vars.Get("side")
		return s.OptionalString(side, "EXIT")
	}))
	h := newHarness(t, `{"steps":[
		{"step":"1","type":"coin","heads":"2","tails":"EXIT"},
		{"step":"2","type":"display","message":"heads","next_step":"EXIT"}
	]}`, "", engine.WithRegistry(r), engine.WithVariables(map[string]string{"side": "heads"}))

	require.NoError(t, h.run())
	assert.Equal(t, "heads\n", h.out.String())
}

var _ ports.Provider = (*recorder)(nil)
