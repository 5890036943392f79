// Package model defines the types shared across the verification client:
// proof protocols, gateway call phases and the structured error model.
//
// Callers branch on Kind (and Phase for transaction failures) rather than on
// error strings. Use errors.As to extract *Error for structured handling.
package model
