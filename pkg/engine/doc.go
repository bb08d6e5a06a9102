/*
Package engine implements the deterministic decision engine.

Evaluate is a pure, total function of a normalized PatientState and a
formulary table: it performs no I/O, reads no clock and uses no randomness,
so equal inputs always produce equal outcomes, rationale order included.

Rules are evaluated in a fixed order and the first gate that fires decides:

 1. Red flags (fever, rigors, flank or back pain, nausea/vomiting, systemic
    illness, confusion, delirium, gross hematuria).
 2. Complicating factors (male sex, pregnancy, age under 12, catheter,
    neurogenic bladder, stones, immunocompromise, renal function below the
    locale threshold).
 3. Recurrence (relapse within 4 weeks, recurrent within 6 or 12 months).
 4. Asymptomatic bacteriuria without qualifying symptoms.
 5. Qualifying symptoms: treatment, with a regimen chosen from the table's
    selection order.
 6. Otherwise, criteria not met.
*/
package engine
