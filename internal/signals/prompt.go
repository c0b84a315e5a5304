package signals

import "fmt"

const analysisSystemPrompt = `You are an expert NLP analyst fluent in many languages including English, Tamil, Hindi, Malayalam, Telugu, Spanish and French.
Analyze business call transcripts in any language and provide accurate sentiment, intent, keywords and entities.
Always return valid JSON with English field names, but analyze the content in its original language.`

const analysisExamples = `Example 1 (English, positive interest):
Transcript: "Hello, I'm very interested in your product. Can you schedule a demo next week?"
Analysis:
{"sentiment": {"compound": 0.85, "sentiment_label": "positive", "explanation": "Customer shows strong interest and proactive engagement"},
 "intent": "demo_request",
 "keywords": {"demo": ["demo", "schedule"], "interest": ["interested"], "product_inquiry": ["product"]},
 "entities": [{"text": "next week", "label": "TIMELINE"}]}

Example 2 (Tamil, complaint):
Transcript: "உங்கள் சேவை சரியாக வேலை செய்யவில்லை. மிகவும் வருத்தமாக இருக்கிறது."
Meaning: "Your service is not working properly. Very frustrated."
Analysis:
{"sentiment": {"compound": -0.75, "sentiment_label": "negative", "explanation": "Customer expresses frustration about service malfunction"},
 "intent": "complaint",
 "keywords": {"complaint": ["சேவை", "வேலை செய்யவில்லை", "வருத்தமாக"]},
 "entities": [{"text": "சேவை", "label": "PRODUCT"}]}

Example 3 (Hindi, pricing inquiry):
Transcript: "मुझे उत्पाद की कीमत और विशेषताओं के बारे में जानना है"
Meaning: "I want to know about product price and features"
Analysis:
{"sentiment": {"compound": 0.35, "sentiment_label": "neutral", "explanation": "Customer seeking information without strong emotion"},
 "intent": "pricing_inquiry",
 "keywords": {"pricing": ["कीमत"], "product_inquiry": ["उत्पाद", "विशेषताओं"]},
 "entities": []}`

func buildAnalysisPrompt(transcript, code, name string) string {
	return fmt.Sprintf(`Analyze this business call transcript in %[1]s and extract structured insights.

%[2]s

Now analyze this transcript.
Language: %[1]s (%[3]s)
Transcript: %[4]s

Return JSON with this exact structure:
{
  "sentiment": {"compound": <float -1.0..1.0>, "sentiment_label": "positive" | "neutral" | "negative", "explanation": "<brief explanation in English>"},
  "intent": "<demo_request | complaint | pricing_inquiry | cancellation | churn_risk | information_request | interest_declaration | objection | qualified_lead | competitor_comparison | urgent_followup | other>",
  "keywords": {"<category>": ["<word>"]},
  "entities": [{"text": "<entity in original language>", "label": "<PERSON|ORG|PRODUCT|TIMELINE|MONEY|DATE|OTHER>"}]
}

Rules:
- Understand the text in its original language; do not translate.
- sentiment_label: positive (> 0.2), neutral (-0.2 to 0.2), negative (< -0.2).
- Extract keywords and entities in their original language.
- Write the explanation in English.`, name, analysisExamples, code, transcript)
}
