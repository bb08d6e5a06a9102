package domain

// Medication class tags used by the interaction tables.
const (
	MedClassACEI             = "acei"
	MedClassARB              = "arb"
	MedClassPotassiumSparing = "potassium_sparing_diuretic"
	MedClassNSAID            = "nsaid"
	MedClassMethotrexate     = "methotrexate"
	MedClassWarfarin         = "warfarin"
)

var medClassByDrug = map[string]string{
	"lisinopril":     MedClassACEI,
	"ramipril":       MedClassACEI,
	"enalapril":      MedClassACEI,
	"benazepril":     MedClassACEI,
	"perindopril":    MedClassACEI,
	"captopril":      MedClassACEI,
	"losartan":       MedClassARB,
	"valsartan":      MedClassARB,
	"olmesartan":     MedClassARB,
	"candesartan":    MedClassARB,
	"irbesartan":     MedClassARB,
	"spironolactone": MedClassPotassiumSparing,
	"eplerenone":     MedClassPotassiumSparing,
	"amiloride":      MedClassPotassiumSparing,
	"triamterene":    MedClassPotassiumSparing,
	"ibuprofen":      MedClassNSAID,
	"naproxen":       MedClassNSAID,
	"diclofenac":     MedClassNSAID,
	"celecoxib":      MedClassNSAID,
	"indomethacin":   MedClassNSAID,
	"ketorolac":      MedClassNSAID,
	"coumadin":       MedClassWarfarin,
}

// InferMedClass maps a lower-case drug name to its interaction class tag.
func InferMedClass(drug string) (string, bool) {
	c, ok := medClassByDrug[drug]
	return c, ok
}
