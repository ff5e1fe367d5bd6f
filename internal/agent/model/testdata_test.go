package model

func completeDetails() BirthDetails {
	return BirthDetails{
		Name:         "Asha",
		DateOfBirth:  "1990-05-12",
		TimeOfBirth:  "06:30",
		PlaceOfBirth: "Mumbai, India",
		Goals:        []string{"career"},
	}
}

func completedState() *ConversationState {
	s := NewConversationState("s-1")
	bd := completeDetails().WithLocation(19.076, 72.8777, "Asia/Kolkata")
	s.BirthDetails = &bd
	s.LocationData = &LocationData{Latitude: 19.076, Longitude: 72.8777, Timezone: "Asia/Kolkata"}
	s.ChartData = &ChartData{Chart: &Chart{}, Analysis: "chart"}
	s.DashaData = &AnalysisData{Analysis: "dasha"}
	s.GoalAnalysisData = &AnalysisData{Analysis: "goals"}
	s.RecommendationData = &AnalysisData{Analysis: "recs"}
	s.Summary = "summary"
	s.AnalysisContext = "context"
	s.AnalysisComplete = true
	return s
}
