package composer

import "github.com/avvvet/krishiseva/internal/models"

type answer struct {
	Main, Context string
}

// cannedAnswers are returned when generation fails. Keyed by intent then
// language; English is the fallback language.
var cannedAnswers = map[models.Intent]map[string]answer{
	models.IntentDiseaseIdentification: {
		"en": {
			"For plant diseases, examine symptoms like yellowing leaves or spots carefully.",
			"Common signs include discoloration, wilting, or unusual growth. Consult your local agricultural extension officer for proper diagnosis and specific treatment recommendations based on your crop and region.",
		},
		"ml": {
			"ചെടിയുടെ രോഗം തിരിച്ചറിയാൻ ഇലകളിലെ മഞ്ഞളിപ്പ്, പുള്ളികൾ തുടങ്ങിയ ലക്ഷണങ്ങൾ ശ്രദ്ധിച്ച് പരിശോധിക്കുക.",
			"നിറം മാറ്റം, വാട്ടം, അസാധാരണ വളർച്ച എന്നിവ സാധാരണ ലക്ഷണങ്ങളാണ്. കൃത്യമായ രോഗനിർണയത്തിന് അടുത്തുള്ള കൃഷിഭവനെ സമീപിക്കുക.",
		},
	},
	models.IntentPestManagement: {
		"en": {
			"For pest management, start by identifying the specific pest affecting your crops.",
			"Use integrated pest management approaches beginning with organic methods like neem oil or beneficial insects. Consider chemical treatments only when necessary and follow safety guidelines.",
		},
		"ml": {
			"കീടനിയന്ത്രണത്തിന് ആദ്യം വിളയെ ബാധിക്കുന്ന കീടം ഏതെന്ന് തിരിച്ചറിയുക.",
			"വേപ്പെണ്ണ, മിത്രകീടങ്ങൾ തുടങ്ങിയ ജൈവ മാർഗങ്ങളിൽ നിന്ന് തുടങ്ങുന്ന സംയോജിത കീടനിയന്ത്രണം സ്വീകരിക്കുക. രാസകീടനാശിനികൾ ആവശ്യമുള്ളപ്പോൾ മാത്രം സുരക്ഷാ നിർദ്ദേശങ്ങൾ പാലിച്ച് ഉപയോഗിക്കുക.",
		},
	},
	models.IntentCropCultivation: {
		"en": {
			"Good cultivation starts with healthy planting material and timely planting.",
			"Prepare the soil well, follow the recommended spacing for your crop and plant at the start of the suitable season. Your local Krishibhavan can share the package of practices for your area.",
		},
		"ml": {
			"നല്ല കൃഷിക്ക് ആരോഗ്യമുള്ള നടീൽ വസ്തുക്കളും കൃത്യസമയത്തുള്ള നടീലും ആവശ്യമാണ്.",
			"മണ്ണ് നന്നായി ഒരുക്കി, ശുപാർശ ചെയ്ത അകലത്തിൽ അനുയോജ്യമായ സീസണിൽ നടുക. നിങ്ങളുടെ പ്രദേശത്തെ കൃഷിരീതികൾക്ക് കൃഷിഭവനെ സമീപിക്കുക.",
		},
	},
	models.IntentFertilizerAdvice: {
		"en": {
			"For fertilizer advice, soil testing is recommended first for precise recommendations.",
			"Generally, balanced NPK fertilizers work well, but specific needs depend on your crop type, soil conditions, and growth stage. Organic options like compost are also beneficial.",
		},
		"ml": {
			"കൃത്യമായ വള ശുപാർശയ്ക്ക് ആദ്യം മണ്ണ് പരിശോധന നടത്തുക.",
			"സന്തുലിതമായ NPK വളങ്ങൾ പൊതുവെ നല്ലതാണ്, എന്നാൽ വിള, മണ്ണ്, വളർച്ചാ ഘട്ടം എന്നിവ അനുസരിച്ച് ആവശ്യം മാറും. കമ്പോസ്റ്റ് പോലുള്ള ജൈവവളങ്ങളും ഗുണകരമാണ്.",
		},
	},
	models.IntentIrrigationAdvice: {
		"en": {
			"Water your crop based on its growth stage and the moisture in the soil.",
			"Check soil moisture before irrigating, avoid waterlogging, and consider drip irrigation to save water. Irrigate early in the morning or in the evening.",
		},
		"ml": {
			"വിളയുടെ വളർച്ചാ ഘട്ടവും മണ്ണിലെ ഈർപ്പവും നോക്കി നനയ്ക്കുക.",
			"നനയ്ക്കുന്നതിന് മുമ്പ് മണ്ണിലെ ഈർപ്പം പരിശോധിക്കുക, വെള്ളക്കെട്ട് ഒഴിവാക്കുക. വെള്ളം ലാഭിക്കാൻ തുള്ളിനന പരിഗണിക്കുക.",
		},
	},
	models.IntentWeatherRelated: {
		"en": {
			"Plan your farm work around the local weather forecast.",
			"Avoid spraying before rain, protect young plants during heavy wind and keep drainage channels clear in the monsoon. Check the district forecast from IMD regularly.",
		},
		"ml": {
			"പ്രാദേശിക കാലാവസ്ഥാ പ്രവചനം നോക്കി കൃഷിപ്പണികൾ ആസൂത്രണം ചെയ്യുക.",
			"മഴയ്ക്ക് മുമ്പ് മരുന്ന് തളിക്കരുത്, മഴക്കാലത്ത് നീർച്ചാലുകൾ വൃത്തിയായി സൂക്ഷിക്കുക. ജില്ലാ കാലാവസ്ഥാ പ്രവചനം പതിവായി പരിശോധിക്കുക.",
		},
	},
	models.IntentMarketPrices: {
		"en": {
			"Market prices change daily, so check the latest rates before selling.",
			"Compare prices at nearby markets and on the e-NAM portal. Grading and proper storage can help you get a better price.",
		},
		"ml": {
			"വിപണി വില ദിവസവും മാറുന്നതിനാൽ വിൽക്കുന്നതിന് മുമ്പ് പുതിയ നിരക്ക് പരിശോധിക്കുക.",
			"അടുത്തുള്ള ചന്തകളിലെയും e-NAM പോർട്ടലിലെയും വില താരതമ്യം ചെയ്യുക. തരംതിരിക്കലും ശരിയായ സംഭരണവും മികച്ച വില നേടാൻ സഹായിക്കും.",
		},
	},
	models.IntentGovernmentSchemes: {
		"en": {
			"Several government schemes support farmers with income, insurance and subsidies.",
			"Schemes such as PM-KISAN and PMFBY have their own eligibility rules. Visit your local Krishibhavan with your land records and bank details to apply.",
		},
		"ml": {
			"വരുമാനം, ഇൻഷുറൻസ്, സബ്സിഡി എന്നിവയ്ക്കായി കർഷകർക്ക് നിരവധി സർക്കാർ പദ്ധതികളുണ്ട്.",
			"PM-KISAN, PMFBY തുടങ്ങിയ പദ്ധതികൾക്ക് പ്രത്യേക യോഗ്യതാ നിബന്ധനകളുണ്ട്. ഭൂരേഖകളും ബാങ്ക് വിവരങ്ങളുമായി കൃഷിഭവനെ സമീപിക്കുക.",
		},
	},
	models.IntentGeneralAdvice: {
		"en": {
			"I'd be happy to help with your agricultural question.",
			"For specific advice, please provide more details about your crop, location, and the specific issue you're facing to get the most accurate guidance.",
		},
		"ml": {
			"നിങ്ങളുടെ കൃഷി സംബന്ധമായ ചോദ്യത്തിന് സഹായിക്കാൻ എനിക്ക് സന്തോഷമേയുള്ളൂ.",
			"കൃത്യമായ ഉപദേശത്തിന് നിങ്ങളുടെ വിള, സ്ഥലം, നേരിടുന്ന പ്രശ്നം എന്നിവയെക്കുറിച്ച് കൂടുതൽ വിവരങ്ങൾ നൽകുക.",
		},
	},
}

// CannedAnswer returns the fallback answer for intent in language.
func CannedAnswer(in models.Intent, language string) (main, context string) {
	byLang, ok := cannedAnswers[in]
	if !ok {
		byLang = cannedAnswers[models.IntentGeneralAdvice]
	}
	a, ok := byLang[language]
	if !ok {
		a = byLang["en"]
	}
	return a.Main, a.Context
}

// actionTips are appended to the explanation, at most MaxTips per answer.
var actionTips = map[models.Intent][]string{
	models.IntentDiseaseIdentification: {
		"Consider taking a photo of the affected area for more accurate diagnosis.",
		"Remove and destroy badly infected plant parts to stop the spread.",
	},
	models.IntentPestManagement: {
		"Always try organic methods first before using chemical pesticides.",
		"Inspect the field every week to catch pest build-up early.",
	},
	models.IntentFertilizerAdvice: {
		"Get your soil tested for precise nutrient recommendations.",
		"Split fertilizer doses instead of applying everything at once.",
	},
	models.IntentIrrigationAdvice: {
		"Irrigate early in the morning or in the evening to reduce evaporation.",
	},
	models.IntentCropCultivation: {
		"Use certified seeds or planting material from a trusted source.",
	},
	models.IntentWeatherRelated: {
		"Check the district forecast before spraying or harvesting.",
	},
	models.IntentMarketPrices: {
		"Compare prices across nearby markets before selling.",
	},
	models.IntentGovernmentSchemes: {
		"Keep your Aadhaar, land records and bank details ready when applying.",
	},
}

const locationTip = "Consult your local Krishibhavan in %s for region-specific advice."

var disclaimers = map[models.Intent]string{
	models.IntentDiseaseIdentification: "Note: For severe problems, please consult a qualified agricultural expert or your local extension officer.",
	models.IntentPestManagement:        "Note: For severe problems, please consult a qualified agricultural expert or your local extension officer.",
	models.IntentFertilizerAdvice:      "Note: Recommendations are general. Soil testing is recommended for precise fertilizer application.",
}

const maxSuggestions = 3

// followUps are localized follow-up questions offered after an answer.
var followUps = map[models.Intent]map[string][]string{
	models.IntentDiseaseIdentification: {
		"en": {
			"Would you like to upload an image of the affected plant?",
			"Do you need information about preventive measures?",
			"Should I suggest organic treatment options?",
		},
		"ml": {
			"ബാധിച്ച ചെടിയുടെ ചിത്രം അപ്‌ലോഡ് ചെയ്യാൻ ആഗ്രഹിക്കുന്നുണ്ടോ?",
			"പ്രതിരോധ നടപടികളെക്കുറിച്ച് വിവരങ്ങൾ വേണോ?",
			"ഓർഗാനിക് ചികിത്സാ ഓപ്ഷനുകൾ നിർദ്ദേശിക്കണോ?",
		},
	},
	models.IntentPestManagement: {
		"en": {
			"Do you want to know about organic pest control methods?",
			"Would you like information about beneficial insects?",
			"Should I explain integrated pest management?",
		},
		"ml": {
			"ഓർഗാനിക് കീട നിയന്ത്രണ രീതികളെക്കുറിച്ച് അറിയാൻ ആഗ്രഹിക്കുന്നുണ്ടോ?",
			"ഗുണകരമായ പ്രാണികളെക്കുറിച്ച് വിവരങ്ങൾ വേണോ?",
			"സമഗ്ര കീട നിയന്ത്രണത്തെക്കുറിച്ച് വിശദീകരിക്കണോ?",
		},
	},
	models.IntentCropCultivation: {
		"en": {
			"Do you need information about the best planting time?",
			"Would you like to know about soil preparation?",
			"Should I explain irrigation requirements?",
		},
		"ml": {
			"ഏറ്റവും നല്ല നടീൽ സമയത്തെക്കുറിച്ച് വിവരങ്ങൾ വേണോ?",
			"മണ്ണ് തയ്യാറാക്കുന്നതിനെക്കുറിച്ച് അറിയാൻ ആഗ്രഹിക്കുന്നുണ്ടോ?",
			"ജലസേചന ആവശ്യകതകൾ വിശദീകരിക്കണോ?",
		},
	},
	models.IntentIrrigationAdvice: {
		"en": {
			"Should I explain irrigation requirements?",
			"Would you like to know about soil preparation?",
			"Do you have any other farming questions?",
		},
		"ml": {
			"ജലസേചന ആവശ്യകതകൾ വിശദീകരിക്കണോ?",
			"മണ്ണ് തയ്യാറാക്കുന്നതിനെക്കുറിച്ച് അറിയാൻ ആഗ്രഹിക്കുന്നുണ്ടോ?",
			"മറ്റേതെങ്കിലും കൃഷി ചോദ്യങ്ങളുണ്ടോ?",
		},
	},
	models.IntentFertilizerAdvice: {
		"en": {
			"Do you want to know about organic fertilizers?",
			"Should I explain soil testing procedures?",
			"Would you like a fertilizer application schedule?",
		},
		"ml": {
			"ഓർഗാനിക് വളങ്ങളെക്കുറിച്ച് അറിയാൻ ആഗ്രഹിക്കുന്നുണ്ടോ?",
			"മണ്ണ് പരിശോധനാ നടപടിക്രമങ്ങൾ വിശദീകരിക്കണോ?",
			"വള പ്രയോഗ ഷെഡ്യൂൾ വേണോ?",
		},
	},
	models.IntentGeneralAdvice: {
		"en": {
			"Do you have any other farming questions?",
			"Would you like information about government schemes?",
			"Should I help with market price information?",
		},
		"ml": {
			"മറ്റേതെങ്കിലും കൃഷി ചോദ്യങ്ങളുണ്ടോ?",
			"സർക്കാർ സ്കീമുകളെക്കുറിച്ച് അറിയാൻ ആഗ്രഹിക്കുന്നുണ്ടോ?",
			"മാർക്കറ്റ് വില വിവരങ്ങളിൽ സഹായിക്കണോ?",
		},
	},
}

// Suggestions returns up to three follow-up questions for intent. Languages
// without a table get English.
func Suggestions(in models.Intent, language string) []string {
	byLang, ok := followUps[in]
	if !ok {
		byLang = followUps[models.IntentGeneralAdvice]
	}
	list, ok := byLang[language]
	if !ok {
		list = byLang["en"]
	}
	if len(list) > maxSuggestions {
		list = list[:maxSuggestions]
	}
	return append([]string(nil), list...)
}
