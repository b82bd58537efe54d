package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/extract"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/phone"
)

// validate reports fields by their JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DataValidation formats and checks the final values. Invalid numbers and
// emails are dropped and noted in the error log.
type DataValidation struct {
	baseAgent
}

// Name implements Agent.
func (*DataValidation) Name() string { return "DataValidation" }

// Execute implements Agent.
func (a *DataValidation) Execute(_ context.Context, cc *model.CrawlingContext) error {
	cc.CurrentStage = model.StageDataValidation
	d := &cc.Extracted

	for _, f := range []model.Field{model.FieldPhone, model.FieldFax} {
		v := d.Get(f)
		if v == "" {
			continue
		}
		res := phone.Format(v)
		if !res.Valid {
			cc.LogError(fmt.Sprintf("%s: invalid %s %q (%s)", a.Name(), f, v, res.Reason))
			d.Set(f, "")
			cc.Confidence.Delete(string(f))
			continue
		}
		d.Set(f, res.Formatted)
	}

	if d.Fax != "" && phone.IsDuplicate(d.Phone, d.Fax) {
		zap.L().Debug("pipeline: fax duplicates phone",
			zap.String("organization", cc.Organization.Name),
			zap.String("number", d.Fax),
		)
		d.Fax = ""
		cc.Confidence.Delete(string(model.FieldFax))
	} else if d.Fax != "" && phone.SameExchange(d.Phone, d.Fax) {
		// Kept: a sibling line of the same exchange.
		cc.AddInsight(string(model.StageDataValidation), map[string]string{
			"phone_fax": "same_exchange",
		})
	}

	if d.Email != "" {
		email := strings.TrimSpace(d.Email)
		if err := validate.Var(email, "required,email"); err != nil {
			cc.LogError(fmt.Sprintf("%s: invalid email %q", a.Name(), d.Email))
			d.Email = ""
			cc.Confidence.Delete(string(model.FieldEmail))
		} else {
			d.Email = email
		}
	}

	var extra []string
	for _, v := range extract.ValidNumbers(d.AdditionalPhones) {
		if v != d.Phone && v != d.Fax {
			extra = append(extra, v)
		}
	}
	d.AdditionalPhones = extra

	cc.CurrentStage = model.StageCompletion
	return nil
}
