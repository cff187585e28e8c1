package model

// AiMode selects which AI operation handles a send.
type AiMode string

const (
	AiModeChat   AiMode = "chat"
	AiModeImage  AiMode = "image"
	AiModeSearch AiMode = "search"
)

// Valid reports whether m is a known mode.
func (m AiMode) Valid() bool {
	switch m {
	case AiModeChat, AiModeImage, AiModeSearch:
		return true
	}
	return false
}

// AiStyle is the tone the assistant answers in.
type AiStyle string

const (
	StyleCheerful     AiStyle = "Cheerful"
	StyleProfessional AiStyle = "Professional"
	StyleSarcastic    AiStyle = "Sarcastic"
	StyleEnthusiastic AiStyle = "Enthusiastic"
	StylePoetic       AiStyle = "Poetic"
	StyleStoryteller  AiStyle = "Storyteller"
	StyleComedian     AiStyle = "Comedian"
	StylePhilosopher  AiStyle = "Philosopher"
)

// AiStyles lists every style in display order.
var AiStyles = []AiStyle{
	StyleCheerful, StyleProfessional, StyleSarcastic, StyleEnthusiastic,
	StylePoetic, StyleStoryteller, StyleComedian, StylePhilosopher,
}

// AiModel is the persona the assistant takes on.
type AiModel string

const (
	ModelGeneralAssistant AiModel = "General Assistant"
	ModelProgrammer       AiModel = "Programmer"
	ModelCreativeWriter   AiModel = "Creative Writer"
	ModelScientist        AiModel = "Scientist"
	ModelHistorian        AiModel = "Historian"
	ModelDoctor           AiModel = "Doctor"
	ModelTeacher          AiModel = "Teacher"
	ModelChef             AiModel = "Chef"
	ModelFitnessCoach     AiModel = "Fitness Coach"
	ModelFirefighter      AiModel = "Firefighter"
)

// AiModels lists every persona in display order.
var AiModels = []AiModel{
	ModelGeneralAssistant, ModelProgrammer, ModelCreativeWriter, ModelScientist,
	ModelHistorian, ModelDoctor, ModelTeacher, ModelChef, ModelFitnessCoach, ModelFirefighter,
}

// Settings are the per-send assistant preferences.
type Settings struct {
	AiStyle AiStyle `json:"aiStyle"`
	AiModel AiModel `json:"aiModel"`
}

// Normalize fills unknown or empty values with the defaults.
func (s Settings) Normalize() Settings {
	out := Settings{AiStyle: StyleCheerful, AiModel: ModelGeneralAssistant}
	for _, st := range AiStyles {
		if s.AiStyle == st {
			out.AiStyle = st
		}
	}
	for _, m := range AiModels {
		if s.AiModel == m {
			out.AiModel = m
		}
	}
	return out
}
