package domain

// DiseaseLabels is the closed set of lesion categories the model scores.
// Order matters: it matches the output layout of the weights file.
var DiseaseLabels = []string{"AKIEC", "BCC", "BKL", "DF", "MEL", "NV", "VASC"}

// DiseaseInfo is the static catalog entry for one label. It seeds the
// enrichment prompt and serves as the fallback when enrichment fails.
type DiseaseInfo struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
}

var diseaseCatalog = map[string]DiseaseInfo{
	"AKIEC": {
		Name:           "Actinic Keratoses / Intraepithelial Carcinoma",
		Description:    "Pre-cancerous scaly patches caused by sun damage. Can develop into squamous cell carcinoma if untreated.",
		Severity:       "pre-cancerous",
		Recommendation: "Consult a dermatologist for evaluation and treatment options.",
	},
	"BCC": {
		Name:           "Basal Cell Carcinoma",
		Description:    "The most common type of skin cancer. Usually appears as a pearly or waxy bump, or a flat flesh-colored lesion.",
		Severity:       "cancer",
		Recommendation: "Seek medical attention. Early treatment is highly effective.",
	},
	"BKL": {
		Name:           "Benign Keratosis",
		Description:    "Non-cancerous skin growths including seborrheic keratoses, solar lentigines, and lichen planus-like keratoses.",
		Severity:       "benign",
		Recommendation: "Generally harmless. Monitor for any changes.",
	},
	"DF": {
		Name:           "Dermatofibroma",
		Description:    "A common benign skin growth that usually appears on the legs. Feels like a hard lump under the skin.",
		Severity:       "benign",
		Recommendation: "Typically no treatment needed unless bothersome.",
	},
	"MEL": {
		Name:           "Melanoma",
		Description:    "The most serious type of skin cancer. Develops from pigment-producing cells (melanocytes).",
		Severity:       "serious-cancer",
		Recommendation: "Seek immediate medical attention. Early detection is critical for successful treatment.",
	},
	"NV": {
		Name:           "Melanocytic Nevi",
		Description:    "Common moles. Benign growths of melanocytes that appear as brown or black spots on the skin.",
		Severity:       "benign",
		Recommendation: "Monitor for changes in size, shape, or color using the ABCDE rule.",
	},
	"VASC": {
		Name:           "Vascular Lesions",
		Description:    "Lesions related to blood vessels, including cherry angiomas, angiokeratomas, and pyogenic granulomas.",
		Severity:       "benign",
		Recommendation: "Usually benign. Consult if bleeding or changing.",
	},
}

// InfoFor returns the catalog entry for a label. Unknown labels get a safe
// default so a catalog lookup can never abort the pipeline.
func InfoFor(diseaseType string) DiseaseInfo {
	if info, ok := diseaseCatalog[diseaseType]; ok {
		return info
	}
	return DiseaseInfo{
		Name:           "Unknown",
		Description:    "Unknown condition",
		Severity:       "unknown",
		Recommendation: "Consult a dermatologist for proper evaluation.",
	}
}
