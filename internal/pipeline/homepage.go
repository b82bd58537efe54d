package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/completion"
	"github.com/sells-group/contact-enricher/internal/extract"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/phone"
)

// HomepageSearch looks up a homepage for organizations that came without one.
type HomepageSearch struct {
	baseAgent
	deps Deps
}

// Name implements Agent.
func (*HomepageSearch) Name() string { return "HomepageSearch" }

// Execute implements Agent.
func (a *HomepageSearch) Execute(ctx context.Context, cc *model.CrawlingContext) error {
	cc.CurrentStage = model.StageHomepageSearch
	if cc.Extracted.Has(model.FieldHomepage) {
		return nil
	}

	org := cc.Organization
	urls, err := a.deps.Searcher.Search(ctx, homepageQuery(org))
	if err != nil {
		return eris.Wrap(err, "search homepage")
	}

	allowSocial := a.deps.Filter.Rules().IsSmallOrg(org.Name, org.Category)
	cand, ok := a.deps.Filter.Pick(urls, allowSocial)
	if !ok {
		zap.L().Debug("pipeline: no homepage candidate",
			zap.String("organization", org.Name),
			zap.Int("results", len(urls)),
		)
		return nil
	}

	cc.Extracted.Homepage = cand.URL
	cc.Extracted.HomepageType = cand.Type
	cc.Confidence.Set(string(model.FieldHomepage), searchConfidence*cand.Multiplier)
	return nil
}

func homepageQuery(org model.Organization) string {
	return strings.TrimSpace(org.Name) + " 홈페이지"
}

// HomepageAnalysis reads the homepage and pulls contact details from it with
// three passes: regular expressions, the AI service, and tel:/mailto: links.
// Values already present win, then the passes in that order.
type HomepageAnalysis struct {
	baseAgent
	deps Deps
}

// Name implements Agent.
func (*HomepageAnalysis) Name() string { return "HomepageAnalysis" }

// ShouldExecute implements Agent.
func (*HomepageAnalysis) ShouldExecute(cc *model.CrawlingContext) bool {
	return cc.Extracted.Has(model.FieldHomepage)
}

// Execute implements Agent.
func (a *HomepageAnalysis) Execute(ctx context.Context, cc *model.CrawlingContext) error {
	cc.CurrentStage = model.StageHomepageAnalysis
	log := zap.L().With(zap.String("organization", cc.Organization.Name))

	page, err := a.deps.Fetcher.Fetch(ctx, cc.Extracted.Homepage)
	if err != nil {
		return eris.Wrap(err, "fetch homepage")
	}
	if !page.Accessible {
		log.Info("pipeline: homepage inaccessible",
			zap.String("url", page.URL),
			zap.String("reason", page.Reason),
		)
		cc.Confidence.Adjust(string(model.FieldHomepage), unreachableHit)
		cc.AddInsight(string(model.StageHomepageAnalysis), map[string]string{
			"accessible": "false",
			"reason":     page.Reason,
		})
		return nil
	}

	regexSrc := extract.Text(page.RawText)

	aiSrc := extract.Source{}
	aiScore := aiConfidence
	raw, aiErr := a.deps.Completer.Complete(ctx, analysisInput(cc.Organization, page), analysisInstruction)
	if aiErr == nil && raw != "" {
		resp := completion.Parse(raw)
		if resp.Kind == completion.Parsed {
			aiSrc = aiSource(resp)
			aiScore = aiConfidence * resp.Confidence()
			insights := map[string]string{}
			if v := resp.Get("SUMMARY"); v != "" {
				insights["summary"] = v
			}
			if v := resp.Get("CATEGORY"); v != "" {
				insights["category"] = v
			}
			cc.AddInsight(string(model.StageHomepageAnalysis), insights)
		} else {
			log.Debug("pipeline: unparsed analysis reply", zap.Int("length", len(raw)))
		}
	}

	links := extract.LinkValues(page.Links)
	linkSrc := extract.Source{}
	if nums := extract.ValidNumbers(links["phone"]); len(nums) > 0 {
		linkSrc["phone"] = nums
	}
	if len(links["email"]) > 0 {
		linkSrc["email"] = links["email"]
	}

	applyMerged(cc, []extract.Source{existingSource(&cc.Extracted), regexSrc, aiSrc, linkSrc},
		[]float64{0, regexConfidence, aiScore, linkConfidence})

	cc.Extracted.ContactPageLinks = extract.ContactLinks(page.URL, page.Links)

	if aiErr != nil {
		return eris.Wrap(aiErr, "analyze homepage")
	}
	return nil
}

// aiSource turns an analysis reply into a merge source. Numbers are
// validated here; other values are checked by DataValidation.
func aiSource(resp completion.Response) extract.Source {
	src := extract.Source{}
	if nums := numbersIn(resp.Get("PHONE")); len(nums) > 0 {
		src["phone"] = nums
	}
	if nums := numbersIn(resp.Get("FAX")); len(nums) > 0 {
		src["fax"] = nums
	}
	if v := resp.Get("EMAIL"); v != "" {
		src["email"] = []string{strings.ToLower(v)}
	}
	if v := resp.Get("ADDRESS"); v != "" {
		src["address"] = []string{v}
	}
	return src
}

// numbersIn returns the valid numbers in a free-text value, which may list
// several.
func numbersIn(v string) []string {
	if v == "" {
		return nil
	}
	n := extract.FindNumbers(v)
	found := extract.ValidNumbers(append(n.Phones, n.Faxes...))
	if len(found) == 0 {
		found = extract.ValidNumbers([]string{v})
	}
	return found
}

// existingSource returns the scalar contact fields already on d.
func existingSource(d *model.ExtractedData) extract.Source {
	src := extract.Source{}
	for _, f := range model.ContactFields {
		if v := d.Get(f); v != "" {
			src[string(f)] = []string{v}
		}
	}
	return src
}

// applyMerged fills absent fields from sources. confidence[i] is the score
// of a value won by sources[i]; values already present keep their score.
// Phone candidates beyond the winner become additional phones.
func applyMerged(cc *model.CrawlingContext, sources []extract.Source, confidence []float64) {
	merged := extract.MergeDetailed(sources)
	for _, f := range []model.Field{model.FieldPhone, model.FieldFax, model.FieldEmail, model.FieldAddress} {
		m, ok := merged[string(f)]
		if !ok || cc.Extracted.Has(f) {
			continue
		}
		cc.Extracted.Set(f, m.Value)
		if m.Source < len(confidence) {
			cc.Confidence.Set(string(f), confidence[m.Source])
		}
	}
	if m, ok := merged[string(model.FieldPhone)]; ok {
		addPhones(cc, m.Candidates...)
	}
}

// addPhones records valid numbers other than the main phone and fax.
func addPhones(cc *model.CrawlingContext, values ...string) {
	seen := make(map[string]bool)
	for _, v := range []string{cc.Extracted.Phone, cc.Extracted.Fax} {
		if res := phone.Format(v); res.Valid {
			seen[res.Formatted] = true
		}
	}
	for _, v := range cc.Extracted.AdditionalPhones {
		seen[v] = true
	}
	for _, v := range extract.ValidNumbers(values) {
		if seen[v] {
			continue
		}
		seen[v] = true
		cc.Extracted.AdditionalPhones = append(cc.Extracted.AdditionalPhones, v)
	}
}
