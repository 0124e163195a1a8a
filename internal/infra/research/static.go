// Package research supplies the research_sources section of an analysis.
package research

import (
	"context"

	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
)

// Static returns fixed illustrative sources. Values do not depend on the scenario.
type Static struct{}

func NewStatic() *Static { return &Static{} }

func (Static) Sources(context.Context, string) (scenario.ResearchSources, error) {
	return scenario.ResearchSources{
		WebSearch: []scenario.WebSearchSource{
			{
				Source:           "Current AI industry valuations and trends",
				RelevanceScore:   0.92,
				CredibilityScore: 0.85,
				Summary:          "Market data from reputable financial sources",
			},
			{
				Source:           "Recent regulatory developments in AI",
				RelevanceScore:   0.88,
				CredibilityScore: 0.90,
				Summary:          "Government and policy documentation",
			},
			{
				Source:           "Academic research on scenario impacts",
				RelevanceScore:   0.85,
				CredibilityScore: 0.95,
				Summary:          "Peer-reviewed studies and publications",
			},
		},
		CodeAnalysis: []scenario.CodeAnalysis{
			{
				AnalysisType:        "Economic impact modeling",
				Result:              "Probabilistic economic projections calculated",
				AccuracyProbability: 0.78,
				Methodology:         "Monte Carlo simulation with historical data",
			},
			{
				AnalysisType:        "Timeline probability calculation",
				Result:              "Event likelihood distributions computed",
				AccuracyProbability: 0.82,
				Methodology:         "Bayesian inference with expert priors",
			},
			{
				AnalysisType:        "Network effects analysis",
				Result:              "Stakeholder interaction modeling complete",
				AccuracyProbability: 0.75,
				Methodology:         "Graph theory and agent-based modeling",
			},
		},
		OverallConfidence: 0.83,
	}, nil
}
