// Package auth performs a single credential check against a conversational verifier such as PAM.
//
// A [Gateway] starts a verifier transaction, answers exactly one secret prompt with the borrowed
// credential, and reports an [Outcome]. Anything richer than one secret prompt fails the
// exchange. Only a successful check followed by a clean finalize yields [OutcomeUnlocked].
package auth
