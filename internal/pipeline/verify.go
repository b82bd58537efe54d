package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/completion"
	"github.com/sells-group/contact-enricher/internal/model"
)

// AIVerification asks the AI service to judge each present field and moves
// its confidence up or down accordingly.
type AIVerification struct {
	baseAgent
	deps Deps
}

// Name implements Agent.
func (*AIVerification) Name() string { return "AIVerification" }

// Execute implements Agent.
func (a *AIVerification) Execute(ctx context.Context, cc *model.CrawlingContext) error {
	cc.CurrentStage = model.StageAIVerification

	input := verificationInput(cc)
	if input == "" {
		return nil
	}
	raw, err := a.deps.Completer.Complete(ctx, input, verificationInstruction)
	if err != nil {
		return eris.Wrap(err, "verify fields")
	}
	if raw == "" {
		return nil
	}

	resp := completion.Parse(raw)
	if resp.Kind != completion.Parsed {
		zap.L().Debug("pipeline: unparsed verification reply",
			zap.String("organization", cc.Organization.Name),
		)
		return nil
	}

	for _, f := range model.ContactFields {
		if !cc.Extracted.Has(f) {
			continue
		}
		switch resp.Verdict(strings.ToUpper(string(f)) + "_VALID") {
		case completion.VerdictValid:
			cc.Confidence.Adjust(string(f), verifiedBonus)
		case completion.VerdictInvalid:
			cc.Confidence.Adjust(string(f), rejectedMalus)
		}
	}
	cc.AddInsight(string(model.StageAIVerification), resp.Insights())
	return nil
}
