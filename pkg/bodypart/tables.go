package bodypart

// Body part tags. They follow the "part" values of the exercises collection.
const (
	Other     = "other"
	Back      = "back"
	Cardio    = "cardio"
	Chest     = "chest"
	LowerLegs = "lower legs"
	Shoulders = "shoulders"
	UpperArms = "upper arms"
	UpperLegs = "upper legs"
	Waist     = "waist"
)

// translations maps non-English exercise names, written without spaces, to
// the English name the rest of the cascade understands.
var translations = map[string]string{
	"벤치프레스":     "bench press",
	"인클라인벤치프레스": "incline bench press",
	"스쿼트":       "squat",
	"데드리프트":     "deadlift",
	"숄더프레스":     "shoulder press",
	"오버헤드프레스":   "overhead press",
	"풀업":        "pull up",
	"턱걸이":       "pull up",
	"친업":        "chin up",
	"랫풀다운":      "lat pulldown",
	"바벨로우":      "barbell row",
	"덤벨로우":      "dumbbell row",
	"푸시업":       "push up",
	"팔굽혀펴기":     "push up",
	"딥스":        "dips",
	"바이셉컬":      "bicep curl",
	"덤벨컬":       "dumbbell curl",
	"해머컬":       "hammer curl",
	"트라이셉익스텐션":  "triceps extension",
	"레그프레스":     "leg press",
	"런지":        "lunge",
	"레그컬":       "leg curl",
	"레그익스텐션":    "leg extension",
	"카프레이즈":     "calf raise",
	"플랭크":       "plank",
	"크런치":       "crunch",
	"사이드레터럴레이즈": "lateral raise",
	"러닝":        "running",
	"사이클":       "cycling",
}

type directMapping struct {
	Name string
	Part string
}

// directMappings is the last-resort table of canonical English names.
// Order matters for the substring pass: longer, more specific names first.
var directMappings = []directMapping{
	{"incline bench press", Chest},
	{"bench press", Chest},
	{"push up", Chest},
	{"chest fly", Chest},
	{"dips", Chest},
	{"leg press", UpperLegs},
	{"leg extension", UpperLegs},
	{"leg curl", UpperLegs},
	{"squat", UpperLegs},
	{"lunge", UpperLegs},
	{"calf raise", LowerLegs},
	{"deadlift", Back},
	{"pull up", Back},
	{"chin up", Back},
	{"lat pulldown", Back},
	{"barbell row", Back},
	{"dumbbell row", Back},
	{"shoulder press", Shoulders},
	{"overhead press", Shoulders},
	{"lateral raise", Shoulders},
	{"dumbbell curl", UpperArms},
	{"hammer curl", UpperArms},
	{"bicep curl", UpperArms},
	{"triceps extension", UpperArms},
	{"plank", Waist},
	{"crunch", Waist},
	{"running", Cardio},
	{"cycling", Cardio},
}

// directIndex holds every directMappings entry under its three key variants.
var directIndex map[string]string

func init() {
	buildDirectIndex()
}

func buildDirectIndex() {
	directIndex = make(map[string]string, len(directMappings)*3)
	for _, m := range directMappings {
		for _, v := range keyVariants(m.Name) {
			if _, exists := directIndex[v]; !exists {
				directIndex[v] = m.Part
			}
		}
	}
}
