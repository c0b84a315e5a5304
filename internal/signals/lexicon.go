package signals

// keywordCategories is the business keyword dictionary. Matching is a
// case-insensitive substring test so multi-word phrases work unchanged.
var keywordCategories = []struct {
	Category string
	Words    []string
}{
	{"demo", []string{"demo", "demonstration", "presentation", "walkthrough", "show me"}},
	{"pricing", []string{"price", "cost", "budget", "fee", "payment", "how much", "expensive", "cheap"}},
	{"complaint", []string{"issue", "problem", "not working", "broken", "error", "bug", "frustrated"}},
	{"cancellation", []string{"cancel", "terminate", "stop", "discontinue", "unsubscribe"}},
	{"competitor", []string{"competitor", "alternative", "other company", "versus", "compare"}},
	{"urgency", []string{"urgent", "asap", "immediately", "right now", "today", "emergency"}},
	{"interest", []string{"interested", "want to", "would like", "looking for", "need"}},
	{"objection", []string{"concerned", "worried", "not sure", "hesitant", "doubt"}},
	{"timeline", []string{"next week", "next month", "tomorrow", "soon", "later"}},
	{"decision_maker", []string{"manager", "boss", "team", "decision", "approval"}},
}

// valence holds word polarity on the usual -4..+4 lexicon scale.
var valence = map[string]float64{
	// positive
	"good": 1.9, "great": 3.1, "excellent": 2.7, "amazing": 2.8, "awesome": 3.1,
	"happy": 2.7, "glad": 2.0, "love": 3.2, "like": 1.5, "nice": 1.8,
	"perfect": 2.7, "pleased": 1.9, "thanks": 1.9, "thank": 1.5, "helpful": 1.8,
	"interested": 1.7, "interesting": 1.7, "excited": 1.4, "wonderful": 2.7, "fantastic": 2.6,
	"satisfied": 1.8, "impressed": 2.1, "easy": 1.9, "best": 3.2, "better": 1.9,
	"fine": 0.8, "fair": 1.3, "recommend": 1.5, "appreciate": 1.7, "appreciated": 2.3,
	"yes": 1.7, "sure": 1.3, "ok": 0.9, "okay": 0.9, "valuable": 2.1,
	"benefit": 2.0, "success": 2.7, "successful": 2.8, "win": 2.8, "solved": 1.1,
	"resolved": 1.4, "reliable": 1.9, "smooth": 1.3, "fast": 1.0, "growth": 1.6,
	// negative
	"bad": -2.5, "poor": -2.1, "terrible": -2.1, "awful": -2.0, "horrible": -2.5,
	"hate": -2.7, "angry": -2.3, "upset": -1.6, "frustrated": -2.4, "frustrating": -1.9,
	"annoyed": -1.6, "annoying": -1.9, "disappointed": -1.9, "disappointing": -2.2, "unhappy": -1.8,
	"problem": -1.7, "problems": -1.7, "issue": -0.8, "issues": -0.8, "broken": -1.7,
	"error": -1.7, "errors": -1.4, "bug": -0.9, "bugs": -0.9, "fail": -2.5,
	"failed": -2.3, "failing": -2.3, "failure": -2.3, "wrong": -2.1, "worst": -3.1,
	"worse": -2.1, "useless": -1.8, "slow": -1.4, "expensive": -0.9, "cancel": -1.0,
	"terminate": -1.0, "waste": -1.8, "ridiculous": -2.1, "unacceptable": -2.0, "complaint": -1.5,
	"worried": -1.2, "concerned": -0.8, "doubt": -1.5, "sorry": -0.3, "no": -1.2,
	"difficult": -1.5, "confusing": -1.3, "confused": -1.3, "lost": -1.3, "refund": -0.6,
	"stuck": -1.0, "outage": -1.6, "down": -0.4, "crash": -1.7, "crashed": -1.7,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nobody": {}, "nothing": {},
	"neither": {}, "nor": {}, "without": {}, "cannot": {}, "dont": {}, "don't": {},
	"doesn't": {}, "doesnt": {}, "didn't": {}, "didnt": {}, "isn't": {}, "isnt": {},
	"wasn't": {}, "wasnt": {}, "won't": {}, "wont": {}, "can't": {}, "cant": {},
	"aren't": {}, "arent": {}, "haven't": {}, "havent": {}, "shouldn't": {}, "wouldn't": {},
}

var boosters = map[string]float64{
	"very": 0.293, "really": 0.293, "extremely": 0.293, "so": 0.293, "totally": 0.293,
	"absolutely": 0.293, "completely": 0.293, "incredibly": 0.293, "highly": 0.293,
	"super": 0.293, "most": 0.293, "quite": 0.293,
	"slightly": -0.293, "somewhat": -0.293, "barely": -0.293, "kinda": -0.293,
	"little": -0.293, "marginally": -0.293,
}
