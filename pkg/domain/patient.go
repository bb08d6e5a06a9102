package domain

import (
	"slices"
	"strings"
)

// Sex is the administrative sex recorded for the patient.
type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
	SexOther  Sex = "other"
)

// PregnancyStatus records whether the patient is known to be pregnant.
type PregnancyStatus string

const (
	PregnancyYes     PregnancyStatus = "yes"
	PregnancyNo      PregnancyStatus = "no"
	PregnancyUnknown PregnancyStatus = "unknown"
)

// RenalSummary is the clinician-summarized renal function.
type RenalSummary string

const (
	RenalNormal   RenalSummary = "normal"
	RenalImpaired RenalSummary = "impaired"
	RenalFailure  RenalSummary = "failure"
	RenalUnknown  RenalSummary = "unknown"
)

// RenalFunction carries the renal summary and, when known, a measured eGFR in mL/min.
type RenalFunction struct {
	Summary RenalSummary `json:"summary,omitempty"`
	EGFR    *float64     `json:"egfr_ml_min,omitempty"`
}

// Below reports whether renal function is known to be below the given eGFR threshold.
// A "failure" summary counts as below any threshold when no eGFR was measured.
func (r *RenalFunction) Below(threshold float64) bool {
	if r == nil {
		return false
	}
	if r.EGFR != nil {
		return *r.EGFR < threshold
	}
	return r.Summary == RenalFailure
}

// Demographics groups the patient's basic attributes.
type Demographics struct {
	Age             int             `json:"age"`
	Sex             Sex             `json:"sex"`
	PregnancyStatus PregnancyStatus `json:"pregnancy_status"`
	Renal           *RenalFunction  `json:"renal_function,omitempty"`
}

// Symptoms is the set of lower urinary tract and neurological symptoms.
type Symptoms struct {
	Dysuria        bool `json:"dysuria"`
	Urgency        bool `json:"urgency"`
	Frequency      bool `json:"frequency"`
	SuprapubicPain bool `json:"suprapubic_pain"`
	Hematuria      bool `json:"hematuria"`
	GrossHematuria bool `json:"gross_hematuria"`
	Confusion      bool `json:"confusion"`
	Delirium       bool `json:"delirium"`
}

// RedFlags are findings that suggest upper tract or systemic infection.
type RedFlags struct {
	Fever          bool `json:"fever"`
	Rigors         bool `json:"rigors"`
	FlankPain      bool `json:"flank_pain"`
	BackPain       bool `json:"back_pain"`
	NauseaVomiting bool `json:"nausea_vomiting"`
	Systemic       bool `json:"systemic"`
}

// History is the relevant medical history. Allergies and Meds are drug or
// drug-class tags.
type History struct {
	AntibioticsLast90d bool     `json:"antibiotics_last_90d"`
	Allergies          []string `json:"allergies,omitempty"`
	Meds               []string `json:"meds,omitempty"`
	ACEIARBUse         bool     `json:"acei_arb_use"`
	Catheter           bool     `json:"catheter"`
	Stones             bool     `json:"stones"`
	Immunocompromised  bool     `json:"immunocompromised"`
	NeurogenicBladder  bool     `json:"neurogenic_bladder"`
}

// Recurrence describes the recent infection pattern.
type Recurrence struct {
	RelapseWithin4w bool `json:"relapse_within_4w"`
	Recurrent6m     bool `json:"recurrent_6m"`
	Recurrent12m    bool `json:"recurrent_12m"`
}

// PatientState is the input of one assessment. It is treated as immutable:
// every stage reads it and produces a new derived artifact.
type PatientState struct {
	Demographics            Demographics `json:"demographics"`
	Symptoms                Symptoms     `json:"symptoms"`
	RedFlags                RedFlags     `json:"red_flags"`
	History                 History      `json:"history"`
	Recurrence              Recurrence   `json:"recurrence"`
	LocaleCode              string       `json:"locale_code"`
	AsymptomaticBacteriuria bool         `json:"asymptomatic_bacteriuria"`
}

// HasQualifyingSymptom reports whether any of dysuria, urgency or frequency is present.
func (p PatientState) HasQualifyingSymptom() bool {
	return p.Symptoms.Dysuria || p.Symptoms.Urgency || p.Symptoms.Frequency
}

// HasAllergy reports whether any declared allergy tag is in classes.
func (p PatientState) HasAllergy(classes ...string) bool {
	for _, a := range p.History.Allergies {
		if slices.Contains(classes, a) {
			return true
		}
	}
	return false
}

// MedClasses returns the medication class tags, including acei and arb when
// ACEIARBUse is set.
func (p PatientState) MedClasses() []string {
	out := slices.Clone(p.History.Meds)
	if p.History.ACEIARBUse {
		out = append(out, MedClassACEI, MedClassARB)
	}
	return dedupe(out)
}

// Clone returns a deep copy of the patient state.
func (p PatientState) Clone() PatientState {
	c := p
	c.History.Allergies = slices.Clone(p.History.Allergies)
	c.History.Meds = slices.Clone(p.History.Meds)
	if p.Demographics.Renal != nil {
		r := *p.Demographics.Renal
		if r.EGFR != nil {
			v := *r.EGFR
			r.EGFR = &v
		}
		c.Demographics.Renal = &r
	}
	return c
}

// Normalize returns a canonical copy: tags are trimmed, lower-cased, sorted and
// deduplicated, drug names in Meds are expanded with their class tags, and the
// locale code is upper-cased. Equal inputs normalize to equal values.
func (p PatientState) Normalize() PatientState {
	c := p.Clone()
	c.LocaleCode = strings.ToUpper(strings.TrimSpace(c.LocaleCode))
	c.History.Allergies = normalizeTags(c.History.Allergies)

	meds := normalizeTags(c.History.Meds)
	for _, m := range meds {
		if class, ok := InferMedClass(m); ok {
			meds = append(meds, class)
		}
	}
	c.History.Meds = dedupe(meds)

	if slices.Contains(c.History.Meds, MedClassACEI) || slices.Contains(c.History.Meds, MedClassARB) {
		c.History.ACEIARBUse = true
	}
	if c.Demographics.Renal != nil && c.Demographics.Renal.Summary == "" {
		c.Demographics.Renal.Summary = RenalUnknown
	}
	if c.Demographics.PregnancyStatus == "" {
		c.Demographics.PregnancyStatus = PregnancyUnknown
	}
	return c
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return dedupe(out)
}

func dedupe(tags []string) []string {
	slices.Sort(tags)
	return slices.Compact(tags)
}
