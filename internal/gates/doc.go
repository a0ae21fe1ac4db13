// Package gates holds the ordered quality checks that stand between a
// high-confidence parse and an autonomous commit. Gates never fail a job;
// a firing gate only forces human review.
package gates
