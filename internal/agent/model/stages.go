package model

// Stage names double as eino node keys.
const (
	StageRouter         = "router"
	StageMain           = "main"
	StageLocation       = "location"
	StageChart          = "chart"
	StageDasha          = "dasha"
	StageGoalAnalysis   = "goal_analysis"
	StageRecommendation = "recommendation"
	StageSummarizer     = "summarizer"
	StageChat           = "chat"
)

// analysisPipeline lists the stages that own analysis artifacts, in execution order.
var analysisPipeline = []string{
	StageMain,
	StageLocation,
	StageChart,
	StageDasha,
	StageGoalAnalysis,
	StageRecommendation,
	StageSummarizer,
}

// PipelineIndex returns the position of stage in the analysis pipeline, or -1.
func PipelineIndex(stage string) int {
	for i, s := range analysisPipeline {
		if s == stage {
			return i
		}
	}
	return -1
}
