package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/a11yreview/pkg/models"
)

const (
	toolName    = "a11yreview"
	toolVersion = "1.0.0"
	toolURI     = "https://github.com/a11yreview"

	schemaURI    = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	sarifVersion = "2.1.0"

	// Rule id for findings not mapped to a specific WCAG success criterion.
	genericRuleID = "accessibility-generic"
)

// SARIF 2.1.0 document structure, limited to the fields this tool emits.

type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`
}

type Run struct {
	Tool                     Tool         `json:"tool"`
	Results                  []Result     `json:"results"`
	VersionControlProvenance []Provenance `json:"versionControlProvenance,omitempty"`
}

type Tool struct {
	Driver Driver `json:"driver"`
}

type Driver struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	InformationURI string `json:"informationUri"`
	Rules          []Rule `json:"rules"`
}

type Rule struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	ShortDescription Message        `json:"shortDescription"`
	FullDescription  Message        `json:"fullDescription"`
	HelpURI          string         `json:"helpUri,omitempty"`
	Properties       map[string]any `json:"properties,omitempty"`
}

type Message struct {
	Text string `json:"text"`
}

type Result struct {
	RuleID     string         `json:"ruleId"`
	Level      string         `json:"level"`
	Message    Message        `json:"message"`
	Locations  []Location     `json:"locations"`
	Properties map[string]any `json:"properties,omitempty"`
}

type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region"`
}

type ArtifactLocation struct {
	URI string `json:"uri"`
}

type Region struct {
	StartLine int `json:"startLine"`
}

type Provenance struct {
	RepositoryURI string `json:"repositoryUri"`
	RevisionID    string `json:"revisionId,omitempty"`
}

// severityLevel maps issue severities to SARIF levels. Fixed table, not
// configurable per call.
func severityLevel(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	case models.SeverityLow:
		return "note"
	default:
		return "warning"
	}
}

// Generate builds a SARIF report from validated issues: one rule per
// distinct WCAG success criterion (sorted for stable output) plus a generic
// rule, and one result per issue at its resolved line. repoURI and revision
// are static provenance, not derived from the issues.
func Generate(issues []models.ResolvedIssue, repoURI, revision string) *Report {
	run := Run{
		Tool: Tool{Driver: Driver{
			Name:           toolName,
			Version:        toolVersion,
			InformationURI: toolURI,
			Rules:          buildRules(issues),
		}},
		Results: buildResults(issues),
	}
	if repoURI != "" || revision != "" {
		run.VersionControlProvenance = []Provenance{{RepositoryURI: repoURI, RevisionID: revision}}
	}
	return &Report{
		Schema:  schemaURI,
		Version: sarifVersion,
		Runs:    []Run{run},
	}
}

func buildRules(issues []models.ResolvedIssue) []Rule {
	distinct := make(map[string]struct{})
	for _, issue := range issues {
		if sc := strings.TrimSpace(issue.WCAGSC); sc != "" {
			distinct[sc] = struct{}{}
		}
	}
	scs := make([]string, 0, len(distinct))
	for sc := range distinct {
		scs = append(scs, sc)
	}
	sort.Strings(scs)

	rules := make([]Rule, 0, len(scs)+1)
	for _, sc := range scs {
		rules = append(rules, Rule{
			ID:               ruleID(sc),
			Name:             "WCAG " + sc,
			ShortDescription: Message{Text: "WCAG Success Criterion " + sc},
			FullDescription:  Message{Text: "Accessibility issue related to WCAG " + sc},
			HelpURI: fmt.Sprintf("https://www.w3.org/WAI/WCAG22/Understanding/%s.html",
				strings.ToLower(strings.ReplaceAll(firstSC(sc), ".", "-"))),
			Properties: map[string]any{"tags": []string{"accessibility", "wcag"}},
		})
	}
	rules = append(rules, Rule{
		ID:               genericRuleID,
		Name:             "Generic Accessibility Issue",
		ShortDescription: Message{Text: "General accessibility concern"},
		FullDescription:  Message{Text: "Accessibility issue not mapped to a specific WCAG Success Criterion"},
		Properties:       map[string]any{"tags": []string{"accessibility"}},
	})
	return rules
}

func buildResults(issues []models.ResolvedIssue) []Result {
	results := make([]Result, 0, len(issues))
	for _, issue := range issues {
		var parts []string
		if issue.Description != "" {
			parts = append(parts, issue.Description)
		}
		if issue.Impact != "" {
			parts = append(parts, "Impact: "+issue.Impact)
		}
		if issue.SuggestedFix != "" {
			parts = append(parts, "Suggested fix: "+issue.SuggestedFix)
		}
		text := strings.Join(parts, "\n\n")
		if text == "" {
			text = issue.Title
		}

		id := genericRuleID
		if strings.TrimSpace(issue.WCAGSC) != "" {
			id = ruleID(issue.WCAGSC)
		}

		properties := map[string]any{
			"severity":          string(issue.Severity),
			"title":             issue.Title,
			"resolution_method": string(issue.Resolution),
		}
		if issue.WCAGSC != "" {
			properties["wcag_sc"] = issue.WCAGSC
		}
		if issue.WCAGLevel != "" {
			properties["wcag_level"] = issue.WCAGLevel
		}

		results = append(results, Result{
			RuleID:  id,
			Level:   severityLevel(issue.Severity),
			Message: Message{Text: text},
			Locations: []Location{{PhysicalLocation: PhysicalLocation{
				ArtifactLocation: ArtifactLocation{URI: issue.File},
				Region:           Region{StartLine: issue.ResolvedLine},
			}}},
			Properties: properties,
		})
	}
	return results
}

// firstSC keeps only the first criterion of a semicolon-separated list.
func firstSC(sc string) string {
	if i := strings.Index(sc, ";"); i >= 0 {
		sc = sc[:i]
	}
	return strings.TrimSpace(sc)
}

// ruleID derives a stable rule id like "wcag-1-1-1" from a WCAG SC string.
func ruleID(sc string) string {
	cleaned := strings.ReplaceAll(firstSC(sc), ".", "-")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	return "wcag-" + cleaned
}

// WriteFile writes the report as indented JSON, creating parent directories
// as needed. It returns false instead of an error on failure: report output
// is best-effort and must never abort the review flow.
func WriteFile(report *Report, path string) bool {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Error().Err(err).Str("path", path).Msg("creating report directory failed")
		return false
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("marshalling report failed")
		return false
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("writing report failed")
		return false
	}
	log.Info().Str("path", path).Int("results", len(report.Runs[0].Results)).Msg("report written")
	return true
}
