// Package refiner asks a hosted language model to polish a visitor's project
// idea, and tracks the suggestion it produces for one draft.
package refiner

import (
	"context"
	"fmt"
)

// Refiner is the text-in/text-out boundary to the hosted model.
type Refiner interface {
	Refine(ctx context.Context, idea string) (string, error)
}

const refinePrompt = `You are an expert AI assistant specialized in helping users conceptualize and refine project ideas.
Your goal is to collaborate with the user. Given their initial project idea, analyze it and provide a constructive, enhanced version.
This enhanced version should aim to improve clarity, completeness, market appeal, or innovative aspects.
Focus on being helpful and inspiring. If the idea is already very good, you can acknowledge that and offer minor polish or confirm its strength.
Do not just repeat the idea; offer tangible improvements or a more compelling phrasing.
Answer in the same language as the idea.

Initial Project Idea:
%s

Constructively Refined Project Idea (return only this enhanced idea text):`

func buildPrompt(idea string) string {
	return fmt.Sprintf(refinePrompt, idea)
}
