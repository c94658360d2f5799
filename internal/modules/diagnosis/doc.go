package diagnosis

// Package diagnosis documents the IO contract for the stage that establishes
// the working diagnosis.
//
// Required state:
//   - A populated intake record and audience level
//   - Supplementary inquiry answers gathered during refinement (may be empty)
//
// Behavior:
//   - The operator may bypass the agents with q and enter the conclusion and
//     basis directly
//   - Otherwise the diagnosis crew produces a conclusion, basis, and the open
//     differential list, and the elimination crew narrows that list round by
//     round using answers and examination results supplied by the operator
//
// State written:
//   - DiagnosisResult (conclusion and basis, overwritten every round)
//   - Outline.DiagnosticDialectics and Outline.SupplementaryExams
//   - The diagnosis section is marked complete in the outline
