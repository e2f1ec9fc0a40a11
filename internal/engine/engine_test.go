package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-split/internal/classification"
	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/heuristic"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/normalize"
	"github.com/Veraticus/spice-split/internal/prompt"
	"github.com/Veraticus/spice-split/internal/split"
)

var (
	testNow    = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	testModels = []string{"model-a", "model-b"}
)

const marketReply = "```json\n{\"action\":\"transaction\",\"message\":\"Anotado!\",\"transaction\":{\"nome\":\"Mercado\",\"valor\":350,\"categoria\":\"Mercado\"}}\n```"

type pipelineSetup struct {
	relay     *MockRelay
	completer *MockCompleter
	configure func(*Options)
}

func newTestPipeline(t *testing.T, s pipelineSetup) *Pipeline {
	t.Helper()

	participants := model.DefaultParticipants()
	reconciler, err := split.NewReconciler(split.DefaultRules(), participants)
	require.NoError(t, err)
	prompts, err := prompt.New(prompt.DefaultConfig())
	require.NoError(t, err)

	opts := Options{
		Normalizer: normalize.New(normalize.Options{Reconciler: reconciler, Participants: participants}),
		Reconciler: reconciler,
		Extractor: heuristic.NewExtractor(
			classification.NewKeywordClassifier(classification.DefaultKeywordRules(), model.CategoryShopping),
			reconciler, participants),
		Prompts:      prompts,
		Participants: participants,
		Location:     time.UTC,
		Logger:       common.DiscardLogger(),
		Now:          func() time.Time { return testNow },
		Models:       testModels,
	}
	// Leave the interfaces nil rather than holding a nil pointer.
	if s.relay != nil {
		opts.Relay = s.relay
	}
	if s.completer != nil {
		opts.Completer = s.completer
	}
	if s.configure != nil {
		s.configure(&opts)
	}

	p, err := New(opts)
	require.NoError(t, err)
	return p
}

func jsonEnvelope(s string) normalize.Envelope {
	return normalize.FromJSON([]byte(s))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMissingConfig))
}

func TestValidate(t *testing.T) {
	assert.True(t, errors.Is(Validate(Request{Message: "   "}), common.ErrEmptyMessage))
	assert.NoError(t, Validate(Request{Message: "Mercado 350"}))
}

func TestProcess_Cascade(t *testing.T) {
	chat := jsonEnvelope(`{"action":"chat","message":"Olá! Como posso ajudar?"}`)
	primaryTx := jsonEnvelope(`{"action":"transaction","message":"Registrado!","transaction":{"nome":"Mercado","valor":350,"categoria":"mercado"}}`)

	tests := []struct {
		name         string
		message      string
		setup        func() pipelineSetup
		wantStage    Stage
		wantAction   model.Action
		wantModel    string
		wantMessage  string
		wantAttempts int
	}{
		{
			name:    "primary transaction ends the cascade",
			message: "Mercado 350",
			setup: func() pipelineSetup {
				return pipelineSetup{relay: NewMockRelay(primaryTx), completer: NewMockCompleter().Reply("model-a", marketReply)}
			},
			wantStage:    StagePrimary,
			wantAction:   model.ActionTransaction,
			wantMessage:  "Registrado!",
			wantAttempts: 1,
		},
		{
			name:    "primary chat for a message without numbers is final",
			message: "oi, tudo bem?",
			setup: func() pipelineSetup {
				return pipelineSetup{relay: NewMockRelay(chat), completer: NewMockCompleter().Reply("model-a", marketReply)}
			},
			wantStage:    StagePrimary,
			wantAction:   model.ActionChat,
			wantMessage:  "Olá! Como posso ajudar?",
			wantAttempts: 1,
		},
		{
			name:    "primary chat for an expense falls through to secondary",
			message: "Mercado 350",
			setup: func() pipelineSetup {
				return pipelineSetup{relay: NewMockRelay(chat), completer: NewMockCompleter().Reply("model-a", marketReply)}
			},
			wantStage:    StageSecondary,
			wantAction:   model.ActionTransaction,
			wantModel:    "model-a",
			wantMessage:  "Anotado!",
			wantAttempts: 2,
		},
		{
			name:    "failing variants are skipped in order",
			message: "Mercado 350",
			setup: func() pipelineSetup {
				relay := NewMockRelay()
				relay.Err = common.ErrProviderStatus
				completer := NewMockCompleter().
					Fail("model-a", common.ErrProviderUnavailable).
					Reply("model-b", marketReply)
				return pipelineSetup{relay: relay, completer: completer}
			},
			wantStage:    StageSecondary,
			wantAction:   model.ActionTransaction,
			wantModel:    "model-b",
			wantAttempts: 3,
		},
		{
			name:    "heuristic answers when providers only chat",
			message: "Mercado 350",
			setup: func() pipelineSetup {
				return pipelineSetup{relay: NewMockRelay(chat), completer: NewMockCompleter()}
			},
			wantStage:    StageHeuristic,
			wantAction:   model.ActionTransaction,
			wantAttempts: 3,
		},
		{
			name:    "backup chat returned when nothing else works",
			message: "Mercado 350",
			setup: func() pipelineSetup {
				return pipelineSetup{
					relay:     NewMockRelay(chat),
					completer: NewMockCompleter(),
					configure: func(o *Options) { o.DisableHeuristic = true },
				}
			},
			wantStage:    StageBackup,
			wantAction:   model.ActionChat,
			wantMessage:  "Olá! Como posso ajudar?",
			wantAttempts: 3,
		},
		{
			name:    "chat from the last stage is kept",
			message: "Mercado 350",
			setup: func() pipelineSetup {
				completer := NewMockCompleter().Reply("model-b", "Não entendi o valor.")
				return pipelineSetup{
					completer: completer,
					configure: func(o *Options) { o.DisableHeuristic = true },
				}
			},
			wantStage:    StageSecondary,
			wantAction:   model.ActionChat,
			wantModel:    "model-b",
			wantMessage:  "Não entendi o valor.",
			wantAttempts: 2,
		},
		{
			name:    "apology when the cascade is exhausted",
			message: "oi",
			setup: func() pipelineSetup {
				relay := NewMockRelay()
				relay.Err = common.ErrProviderUnavailable
				return pipelineSetup{relay: relay, completer: NewMockCompleter()}
			},
			wantStage:    StageFallback,
			wantAction:   model.ActionChat,
			wantMessage:  ApologyMessage,
			wantAttempts: 3,
		},
		{
			name:    "no providers configured",
			message: "Mercado 350",
			setup: func() pipelineSetup {
				return pipelineSetup{}
			},
			wantStage:  StageHeuristic,
			wantAction: model.ActionTransaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, tt.setup())

			out := p.Process(context.Background(), Request{Message: tt.message})

			assert.Equal(t, tt.wantStage, out.Stage)
			assert.Equal(t, tt.wantAction, out.Result.Action)
			assert.Equal(t, tt.wantModel, out.Model)
			assert.Equal(t, tt.wantAttempts, out.Attempts)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, out.Result.Message)
			}
			if out.Result.IsTransaction() {
				assert.Equal(t, tt.message, out.Result.Draft.SourceText)
				assert.True(t, out.Result.Draft.TotalAmount.Equal(decimal.NewFromInt(350)))
				require.NoError(t, out.Result.Draft.Validate())
			}
		})
	}
}

func TestProcess_ExpenseChatNeverWinsOverLaterStages(t *testing.T) {
	messages := []string{"Mercado 350", "gastei 120 no petshop", "Netflix 55,90"}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			p := newTestPipeline(t, pipelineSetup{
				relay:     NewMockRelay(jsonEnvelope(`{"action":"chat","message":"Pode repetir?"}`)),
				completer: NewMockCompleter().Reply("model-a", "Pode repetir?").Reply("model-b", "Pode repetir?"),
			})

			out := p.Process(context.Background(), Request{Message: msg})

			assert.Equal(t, StageHeuristic, out.Stage)
			assert.True(t, out.Result.IsTransaction())
		})
	}
}

func TestProcess_SmallTalkWithSingleDigitFallsBack(t *testing.T) {
	p := newTestPipeline(t, pipelineSetup{
		relay:     &MockRelay{Err: common.ErrProviderUnavailable},
		completer: NewMockCompleter(),
	})

	out := p.Process(context.Background(), Request{Message: "Tenho 3 gatos"})

	assert.Equal(t, StageFallback, out.Stage)
	assert.False(t, out.Result.IsTransaction())
	assert.Equal(t, ApologyMessage, out.Result.Message)
}

func TestProcess_RelayRequest(t *testing.T) {
	relay := NewMockRelay(jsonEnvelope(`{"action":"chat","message":"ok"}`))
	p := newTestPipeline(t, pipelineSetup{relay: relay})

	correction := &model.Draft{
		Name:             "Uber",
		TotalAmount:      decimal.NewFromInt(45),
		Category:         model.CategoryTransport,
		Payer:            "Lara",
		SplitPolicy:      model.SplitEqual,
		Recurrence:       model.RecurrenceOneOff,
		InstallmentCount: 1,
		Shared:           true,
		CorrectionID:     "tx-1",
	}
	p.Process(context.Background(), Request{
		Message:     "na verdade foi 50",
		Correction:  correction,
		CurrentUser: "Lara",
	})

	reqs := relay.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "na verdade foi 50", req.Message)
	assert.Equal(t, "Lara", req.CurrentUser)
	assert.Equal(t, "2026-10-15", req.CurrentDate)
	assert.NotEmpty(t, req.SystemPrompt)
	assert.Contains(t, req.UserContextPrompt, "na verdade foi 50")
	require.NotNil(t, req.LastTransaction)
	assert.Equal(t, "Uber", req.LastTransaction.Name)
}

func TestProcess_SecondaryPromptCarriesContext(t *testing.T) {
	completer := NewMockCompleter().Reply("model-a", marketReply)
	p := newTestPipeline(t, pipelineSetup{completer: completer})

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	out := p.Process(context.Background(), Request{Message: "Mercado 350", CurrentDate: date, CurrentUser: "Lara"})

	require.True(t, out.Result.IsTransaction())
	assert.Equal(t, date, out.Result.Draft.OccurredOn)
	assert.Equal(t, model.Payer("Lara"), out.Result.Draft.Payer)

	calls := completer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "model-a", calls[0].Model)
	assert.Contains(t, calls[0].Prompt, "Mercado 350")
	assert.Contains(t, calls[0].Prompt, "Lara")
}

func TestProcess_CorrectionPass(t *testing.T) {
	const msg = "Dinner 300, the other party pays 100"

	tests := []struct {
		name        string
		reply       string
		wantMessage string
	}{
		{
			name:  "provider total replaced by the stated amounts",
			reply: `{"action":"transaction","message":"Registrado!","transaction":{"nome":"Dinner","valor":100,"categoria":"alimentação"}}`,
		},
		{
			name:        "agreeing provider keeps its message",
			reply:       `{"action":"transaction","message":"Registrado!","transaction":{"nome":"Dinner","valor":300,"categoria":"alimentação","share_a":200,"share_b":100}}`,
			wantMessage: "Registrado!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, pipelineSetup{relay: NewMockRelay(jsonEnvelope(tt.reply))})

			out := p.Process(context.Background(), Request{Message: msg, CurrentUser: "Douglas"})

			require.True(t, out.Result.IsTransaction())
			d := out.Result.Draft
			assert.True(t, d.TotalAmount.Equal(decimal.NewFromInt(300)), "total %s", d.TotalAmount)
			assert.Equal(t, model.SplitCustom, d.SplitPolicy)
			assert.True(t, d.ShareA.Equal(decimal.NewFromInt(200)))
			assert.True(t, d.ShareB.Equal(decimal.NewFromInt(100)))
			require.NoError(t, d.Validate())

			want := tt.wantMessage
			if want == "" {
				want = model.ConfirmationMessage(d, model.DefaultParticipants())
			}
			assert.Equal(t, want, out.Result.Message)
		})
	}
}

func TestProcess_GuardRecoversPanics(t *testing.T) {
	relay := NewMockRelay()
	relay.Panic = "boom [goroutine 7 running]"
	p := newTestPipeline(t, pipelineSetup{relay: relay})

	out := p.Process(context.Background(), Request{Message: "Mercado 350"})

	assert.Equal(t, StageGuard, out.Stage)
	assert.Equal(t, model.ActionChat, out.Result.Action)
	assert.True(t, strings.HasSuffix(out.Result.Message, "Diagnóstico: boom"), out.Result.Message)
	assert.NotContains(t, out.Result.Message, "goroutine")
}

func TestProcess_CancelledContextSkipsProviders(t *testing.T) {
	relay := NewMockRelay(jsonEnvelope(`{"action":"chat","message":"ok"}`))
	completer := NewMockCompleter().Reply("model-a", marketReply)
	p := newTestPipeline(t, pipelineSetup{relay: relay, completer: completer})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := p.Process(ctx, Request{Message: "Mercado 350"})

	assert.Empty(t, relay.Requests())
	assert.Empty(t, completer.Calls())
	assert.Equal(t, StageHeuristic, out.Stage)
	assert.Zero(t, out.Attempts)
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "error value", in: errors.New("nil map write"), want: "nil map write"},
		{name: "cut at bracket", in: "falhou [GoogleGenerativeAI Error]", want: "falhou"},
		{name: "empty", in: "", want: "erro desconhecido"},
		{name: "leading bracket", in: "[500 Internal Server Error] upstream", want: "erro desconhecido"},
		{name: "long", in: strings.Repeat("x", 200), want: strings.Repeat("x", 119) + "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, diagnose(tt.in))
		})
	}
}
