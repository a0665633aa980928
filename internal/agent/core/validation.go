package core

import (
	"context"
)

type validationVerdict struct {
	IsValid *bool  `json:"is_valid"`
	Message string `json:"message"`
}

// ValidationStage asks the model whether the query is a career or learning
// goal. An unusable answer fails the run; a negative answer does not.
func (o *Orchestrator) ValidationStage(ctx context.Context, in State) (out State) {
	defer o.recoverStage(AgentValidation, in, &out)

	completion, err := o.completer.Complete(ctx, validationPrompt(in.Query))
	if err != nil {
		return o.failValidation(ctx, in, newStageError(AgentValidation, KindCompletion, err, "", o.opts.ErrorExcerptLen))
	}

	var verdict validationVerdict
	if kind, err := decodePayload(completion, schemaValidation, &verdict); err != nil {
		return o.failValidation(ctx, in, newStageError(AgentValidation, kind, err, completion, o.opts.ErrorExcerptLen))
	}

	out = in.Clone().advance(AgentValidation)
	out.IsValid = verdict.IsValid != nil && *verdict.IsValid
	out.ValidationMessage = verdict.Message
	o.logFor(ctx).Info("query validated", "is_valid", out.IsValid, "message", out.ValidationMessage)
	return out
}

func (o *Orchestrator) failValidation(ctx context.Context, in State, se *StageError) State {
	o.logFor(ctx).Warn("validation failed", "kind", se.Kind, "error", se.Err)
	out := in.Fail(se)
	out.IsValid = false
	out.ValidationMessage = "Error validating query: " + se.Err.Error()
	return out
}
