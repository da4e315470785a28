package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// Language-matched static disclaimers appended to every advice result.
const (
	disclaimerEN = "This information is for general guidance only. Please consult a doctor for serious conditions."
	disclaimerHI = "यह जानकारी केवल सामान्य मार्गदर्शन के लिए है। कृपया गंभीर स्थिति में डॉक्टर से परामर्श करें।"
)

// AdviceRequest carries everything the advisor needs to build a
// personalized prompt.
type AdviceRequest struct {
	Disease      domain.Disease
	Symptoms     []string
	Language     domain.Language
	Age          *int
	Gender       *domain.Gender
	Weight       *float64
	DurationDays *int
}

// DosageAdvisor generates medicine and dosage guidance personalized by
// age, gender and weight, in English or Hindi.
type DosageAdvisor struct {
	generator domain.TextGenerator
	logger    *logrus.Logger
}

// NewDosageAdvisor creates a new dosage advisor
func NewDosageAdvisor(generator domain.TextGenerator, logger *logrus.Logger) *DosageAdvisor {
	return &DosageAdvisor{
		generator: generator,
		logger:    logger,
	}
}

// Advise generates a dosage recommendation for the predicted disease.
// Gateway failures surface as domain.ErrGenerationFailed; the caller
// decides whether advice is required or optional.
func (a *DosageAdvisor) Advise(ctx context.Context, req AdviceRequest) (*domain.AdviceResult, error) {
	prompt := a.buildPrompt(req)

	a.logger.WithFields(logrus.Fields{
		"disease":  req.Disease,
		"language": req.Language,
	}).Info("Generating medicine recommendations")

	text, err := a.generator.Generate(ctx, domain.GenerateRequest{
		UserPrompt: prompt,
		Cacheable:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("generating medicine advice: %w", err)
	}

	disclaimer := disclaimerEN
	if req.Language == domain.LanguageHindi {
		disclaimer = disclaimerHI
	}

	return &domain.AdviceResult{
		Recommendation: text,
		Disclaimer:     disclaimer,
		Language:       req.Language,
	}, nil
}

// demographicLine renders the present demographic fields for the prompt,
// in the prompt's language.
func demographicLine(req AdviceRequest) string {
	var parts []string
	hindi := req.Language == domain.LanguageHindi

	if req.Age != nil {
		if hindi {
			parts = append(parts, fmt.Sprintf("उम्र: %d साल", *req.Age))
		} else {
			parts = append(parts, fmt.Sprintf("Age: %d years", *req.Age))
		}
	}
	if req.Gender != nil {
		genderNames := map[domain.Gender]string{
			domain.GenderMale:   "Male/पुरुष",
			domain.GenderFemale: "Female/महिला",
			domain.GenderOther:  "Other/अन्य",
		}
		name, ok := genderNames[*req.Gender]
		if !ok {
			name = string(*req.Gender)
		}
		parts = append(parts, "Gender: "+name)
	}
	if req.Weight != nil {
		if hindi {
			parts = append(parts, fmt.Sprintf("वजन: %g किलो", *req.Weight))
		} else {
			parts = append(parts, fmt.Sprintf("Weight: %g kg", *req.Weight))
		}
	}

	if len(parts) == 0 {
		if hindi {
			return "उपलब्ध नहीं"
		}
		return "Not provided"
	}
	return strings.Join(parts, ", ")
}

// specialAttention builds the demographic caution block, keyed to the
// fields actually present: pediatric under 18, elderly at 60 and over,
// pregnancy and breastfeeding for female patients.
func specialAttention(req AdviceRequest) string {
	hindi := req.Language == domain.LanguageHindi
	var lines []string

	if req.Age != nil && *req.Age < 18 {
		if hindi {
			lines = append(lines, "- रोगी बच्चा है (18 साल से कम): बहुत सावधानी से, कम खुराक बताएं")
		} else {
			lines = append(lines, "- Patient is a child (under 18): Be very cautious, prescribe lower doses")
		}
	}
	if req.Age != nil && *req.Age >= 60 {
		if hindi {
			lines = append(lines, "- रोगी बुजुर्ग है (60+ साल): डॉक्टर से मिलने की सलाह दें")
		} else {
			lines = append(lines, "- Patient is elderly (60+ years): Recommend doctor consultation")
		}
	}
	if req.Gender != nil && *req.Gender == domain.GenderFemale {
		if hindi {
			lines = append(lines, "- महिला रोगी: गर्भावस्था/स्तनपान के लिए चेतावनी दें")
		} else {
			lines = append(lines, "- Female patient: Warn about pregnancy/breastfeeding considerations")
		}
	}

	if len(lines) == 0 {
		if hindi {
			lines = append(lines, "- उम्र/वजन की जानकारी नहीं है: सामान्य वयस्क खुराक बताएं और डॉक्टर से पुष्टि करने को कहें")
		} else {
			lines = append(lines, "- No age/weight provided: Give standard adult doses and advise confirming with a doctor")
		}
	}

	return strings.Join(lines, "\n")
}

func (a *DosageAdvisor) buildPrompt(req AdviceRequest) string {
	symptoms := strings.Join(req.Symptoms, ", ")
	if req.DurationDays != nil {
		if req.Language == domain.LanguageHindi {
			symptoms += fmt.Sprintf(" (%d दिनों से)", *req.DurationDays)
		} else {
			symptoms += fmt.Sprintf(" (for %d days)", *req.DurationDays)
		}
	}
	demographics := demographicLine(req)
	attention := specialAttention(req)

	if req.Language == domain.LanguageHindi {
		return fmt.Sprintf(`आप एक प्रमाणित भारतीय स्वास्थ्य सलाहकार हैं।
**महत्वपूर्ण नियम: केवल सरल हिंदी में उत्तर दें। कोई अंग्रेजी शब्द नहीं (सिर्फ दवाई के नाम अंग्रेजी में)।**
ग्रामीण लोगों के लिए आसान भाषा का उपयोग करें।

**रोगी की जानकारी (Patient Details):**
%s

**रोग (Disease):** %s
**लक्षण (Symptoms):** %s

**कृपया व्यक्तिगत सलाह दें (रोगी की उम्र/वजन के अनुसार):**

1. **सामान्य दवाइयां (OTC Medicines) - विस्तृत खुराक:**
   - हर दवाई का नाम, ताकत (जैसे 500mg, 10mg)
   - कितनी मात्रा: आधी गोली/पूरी गोली/कैप्सूल/चम्मच (ml)
   - दिन में कितनी बार: सुबह/दोपहर/रात
   - कितने दिन तक लेनी है
   - **उम्र के हिसाब से खुराक:** बच्चे/बड़े/बुजुर्ग के लिए अलग बताएं
   - उदाहरण: "पैरासिटामोल 500mg - 1 पूरी गोली, दिन में 3 बार (सुबह-दोपहर-रात), खाने के बाद, 3 दिन तक"

2. **घरेलू उपचार (Home Remedies):**
   - पारंपरिक और सुरक्षित घरेलू नुस्खे
   - आहार सुझाव (क्या खाएं, कितनी मात्रा में)

3. **सावधानियां (Precautions):**
   - उम्र के हिसाब से विशेष सावधानी (बच्चे/गर्भवती महिला/बुजुर्ग)
   - क्या करें और क्या न करें
   - संक्रमण से बचाव

4. **डॉक्टर को कब दिखाएं (When to See Doctor):**
   - गंभीर संकेत जिनमें तुरंत डॉक्टर से मिलना जरूरी है
   - इस उम्र के मरीज के लिए आपातकालीन लक्षण

**विशेष ध्यान:**
%s

**सभी जानकारी केवल सरल हिंदी में दें। कोई अंग्रेजी वाक्य या शब्द नहीं।**

**अस्वीकरण:** यह जानकारी केवल शिक्षा के लिए है। गंभीर स्थिति में डॉक्टर से सलाह लें।`,
			demographics, req.Disease, symptoms, attention)
	}

	return fmt.Sprintf(`You are a certified health advisor for India, specializing in safe medication guidance.
**IMPORTANT: Respond ONLY in simple, clear English.**
Use everyday language that rural and general users can understand. No medical jargon.

**Patient Information:**
%s

**Disease:** %s
**Symptoms:** %s

**Please provide personalized advice based on patient's age/weight:**

1. **Over-the-Counter (OTC) Medicines - Detailed Dosage:**
   - Medicine name, strength (e.g., 500mg, 10mg)
   - Exact amount: half tablet/full tablet/capsule/teaspoon (ml)
   - How many times per day: morning/afternoon/night
   - Duration: how many days
   - **Age-specific dosage:** Mention different doses for children/adults/elderly
   - Example: "Paracetamol 500mg - 1 full tablet, 3 times daily (morning-afternoon-night), after meals, for 3 days"

2. **Home Remedies:**
   - Traditional and safe home remedies
   - Diet suggestions (what to eat, quantities)

3. **Precautions:**
   - Age-specific warnings (children/pregnant women/elderly)
   - Do's and don'ts
   - How to prevent spreading infection

4. **When to See a Doctor:**
   - Serious signs requiring immediate doctor consultation
   - Emergency symptoms specific to this age group

**Special Attention:**
%s

**Provide all information in simple English only. No Hindi words or sentences.**

**Disclaimer:** This information is for educational purposes only. Consult a doctor for serious conditions.`,
		demographics, req.Disease, symptoms, attention)
}
