// Package agent runs the reasoning/acting loop that turns model output into
// tool calls until the model gives a final answer or the iteration ceiling is hit.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/journal"
	"github.com/xkilldash9x/codesmith-cli/internal/llmutil"
	"github.com/xkilldash9x/codesmith-cli/internal/tools"
)

// CeilingResult is returned when the loop runs out of iterations.
const CeilingResult = "Task failed: Max iterations reached without a final answer."

// Corrective Observations for malformed model turns.
const (
	MissingPauseObservation = "Error: Invalid response format. You must end the Action block with PAUSE."
)

const (
	defaultMaxIterations = 99
	defaultMaxHistory    = 200
	defaultPromptWindow  = 20
	observationLogLimit  = 500
	decisionTemperature  = 0.2
)

// Option configures a Controller.
type Option func(*Controller)

// WithJournal records every step to j.
func WithJournal(j journal.Journal) Option {
	return func(c *Controller) {
		if j != nil {
			c.journal = j
		}
	}
}

// Controller drives one task to completion. It is not safe for concurrent
// use; each Run starts from a fresh state and history.
type Controller struct {
	logger      *zap.Logger
	generator   schemas.LLMClient
	registry    *tools.Registry
	cfg         config.AgentConfig
	projectRoot string
	journal     journal.Journal

	state   *AgentState
	history *History
}

// NewController wires a loop over registry. Zero-valued loop bounds fall back
// to the defaults.
func NewController(logger *zap.Logger, generator schemas.LLMClient, registry *tools.Registry, cfg config.AgentConfig, projectRoot string, opts ...Option) *Controller {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultMaxHistory
	}
	if cfg.PromptWindow <= 0 {
		cfg.PromptWindow = defaultPromptWindow
	}
	if len(cfg.SuccessKeywords) == 0 {
		cfg.SuccessKeywords = []string{"successfully", "created", "generated", "completed"}
	}
	if len(cfg.FailureKeywords) == 0 {
		cfg.FailureKeywords = []string{"error", "failed", "exception", "not found"}
	}

	c := &Controller{
		logger:      logger.Named("agent"),
		generator:   generator,
		registry:    registry,
		cfg:         cfg,
		projectRoot: projectRoot,
		journal:     &journal.Nop{},
		state:       &AgentState{},
		history:     NewHistory(cfg.MaxHistory),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the state of the current or last run.
func (c *Controller) State() *AgentState { return c.state }

// History returns the transcript of the current or last run.
func (c *Controller) History() *History { return c.history }

// Run executes the loop for task and returns the model's final answer or
// CeilingResult. Tool failures and malformed model output never end the run.
func (c *Controller) Run(ctx context.Context, task string) string {
	c.state = &AgentState{}
	c.history = NewHistory(c.cfg.MaxHistory)
	c.history.Add("Task: " + task)

	observation := InitialObservation
	for i := 1; i <= c.cfg.MaxIterations; i++ {
		c.logger.Info(fmt.Sprintf("--- Iteration %d/%d ---", i, c.cfg.MaxIterations))

		step := journal.Step{Iteration: i, At: time.Now().UTC()}
		answer, next, done := c.iterate(ctx, observation, &step)
		if done {
			step.Observation = answer
			c.recordStep(ctx, step)
			c.logger.Info("Final answer received", zap.Int("iteration", i), zap.String("answer", llmutil.Truncate(answer, observationLogLimit)))
			return answer
		}
		observation = next
		step.Observation = observation
		c.recordStep(ctx, step)
	}

	c.logger.Warn("Max iterations reached.", zap.Int("max_iterations", c.cfg.MaxIterations))
	return CeilingResult
}

// iterate performs one Generator call and at most one tool call. It returns
// the answer with done set, or the next Observation.
func (c *Controller) iterate(ctx context.Context, observation string, step *journal.Step) (answer, next string, done bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic recovered during loop iteration",
				zap.Any("panic_value", r),
				zap.Stack("stack"),
			)
			answer, done = "", false
			next = fmt.Sprintf("Error: internal failure while processing the last response: %v", r)
		}
	}()

	prompt := c.userPrompt(observation)
	c.logger.Debug("Prompt for generator", zap.String("prompt", prompt))

	response, err := c.generator.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: c.systemPrompt(),
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{Temperature: decisionTemperature},
	})
	if err == nil && strings.TrimSpace(response) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		c.logger.Error("Generator call failed", zap.Error(err))
		return "", fmt.Sprintf("Error: generator call failed: %v", err), false
	}
	c.logger.Debug("Generator raw response", zap.String("response", response))

	turn := llmutil.ParseReAct(response)
	step.Thought = turn.Thought
	c.history.Add("Thought: " + turn.Thought)
	c.logger.Info("Thought", zap.String("thought", turn.Thought))

	if turn.HasAnswer() {
		return *turn.Answer, "", true
	}

	if !turn.Paused {
		c.logger.Warn(MissingPauseObservation)
		return "", MissingPauseObservation, false
	}
	if _, ok := c.registry.Lookup(turn.Action); turn.Action == "" || !ok {
		msg := c.registry.InvalidActionMessage(turn.Action)
		c.logger.Error(msg)
		return "", msg, false
	}
	step.Action = turn.Action
	if turn.InputErr != nil {
		msg := fmt.Sprintf("Error: Invalid JSON in action input: %v. Input was: %s", turn.InputErr, turn.RawInput)
		c.logger.Error(msg)
		return "", msg, false
	}
	step.Input = turn.Input

	c.history.Add(llmutil.FormatAction(turn.Action, turn.Input))
	c.logger.Info("Action", zap.String("action", turn.Action), zap.Any("input", turn.Input))

	input := tools.Input{}
	for k, v := range turn.Input {
		input[k] = v
	}
	if c.consumesState(turn.Action) {
		for k, v := range c.state.Payloads(c.projectRoot) {
			input[k] = v
		}
	}

	result := c.registry.Dispatch(ctx, turn.Action, input)
	c.logger.Info("Observation", zap.String("observation", llmutil.Truncate(result, observationLogLimit)))
	c.history.Add("Observation: " + result)

	update := Update{
		Action:      turn.Action,
		Input:       input,
		Observation: result,
		Success:     tools.ClassifyOutcome(result, c.cfg.SuccessKeywords, c.cfg.FailureKeywords),
		ProjectRoot: c.projectRoot,
	}
	if err := ApplyStateRule(c.state, update); err != nil {
		c.logger.Warn("State not updated from observation", zap.String("action", turn.Action), zap.Error(err))
	}
	return "", result, false
}

func (c *Controller) consumesState(action string) bool {
	for _, name := range c.cfg.StateTools {
		if name == action {
			return true
		}
	}
	return c.registry.ConsumesState(action)
}

func (c *Controller) recordStep(ctx context.Context, step journal.Step) {
	if err := c.journal.RecordStep(ctx, step); err != nil {
		c.logger.Warn("Failed to record step", zap.Int("iteration", step.Iteration), zap.Error(err))
	}
}
