package service

import (
	"github.com/health-triage-server/internal/domain"
)

// SymptomVocabulary lists the symptoms the classifier understands, in the
// order the intake form presents them.
var SymptomVocabulary = []string{
	"fever",
	"cough",
	"fatigue",
	"headache",
	"sore throat",
	"runny nose",
	"body ache",
	"difficulty breathing",
	"chest pain",
	"nausea",
	"vomiting",
	"diarrhea",
	"loss of taste",
	"loss of smell",
	"chills",
}

// diseaseGuidance holds the static precaution and recommendation lists for
// one disease.
type diseaseGuidance struct {
	Precautions     []string
	Recommendations []string
}

// diseaseInfo is the static guidance table consulted after classification.
// Unknown labels yield empty lists.
var diseaseInfo = map[domain.Disease]diseaseGuidance{
	domain.DiseaseCommonCold: {
		Precautions: []string{
			"Get plenty of rest",
			"Stay hydrated",
			"Use over-the-counter cold medications",
			"Avoid close contact with others",
		},
		Recommendations: []string{
			"Symptoms usually resolve within 7-10 days",
			"Consult a doctor if symptoms worsen",
			"Monitor for fever above 101°F",
		},
	},
	domain.DiseaseFlu: {
		Precautions: []string{
			"Get plenty of rest",
			"Stay home to avoid spreading",
			"Take antiviral medication if prescribed",
			"Keep warm and hydrated",
		},
		Recommendations: []string{
			"See a doctor within 48 hours for antiviral treatment",
			"Monitor for breathing difficulties",
			"Recovery typically takes 1-2 weeks",
		},
	},
	domain.DiseaseCOVID19: {
		Precautions: []string{
			"Self-isolate immediately",
			"Get tested for confirmation",
			"Monitor oxygen levels",
			"Wear a mask around others",
		},
		Recommendations: []string{
			"Consult healthcare provider for guidance",
			"Seek emergency care if breathing becomes difficult",
			"Inform close contacts",
		},
	},
	domain.DiseaseGastroenteritis: {
		Precautions: []string{
			"Stay hydrated with clear fluids",
			"Eat bland foods (BRAT diet)",
			"Wash hands frequently",
			"Rest and avoid solid foods initially",
		},
		Recommendations: []string{
			"Symptoms usually improve within 48 hours",
			"See a doctor if symptoms persist beyond 3 days",
			"Watch for signs of dehydration",
		},
	},
	domain.DiseaseMigraine: {
		Precautions: []string{
			"Rest in a dark, quiet room",
			"Apply cold compress to forehead",
			"Take prescribed migraine medication",
			"Avoid triggers (bright lights, loud sounds)",
		},
		Recommendations: []string{
			"Keep a headache diary",
			"Consider preventive medications",
			"Consult a neurologist for chronic migraines",
		},
	},
}
