package llm

const relationPrompt = `You are an evidence analyst. Judge the relationship between a new piece of evidence and an existing belief.

Evidence: %s
Belief: %s

Classify the relation:
- SUPPORTS: the evidence makes the belief more likely to be true
- CONTRADICTS: the evidence makes the belief less likely to be true
- REFINES: the evidence narrows or qualifies the belief without confirming or denying it
- NEUTRAL: the evidence is unrelated or says nothing about the belief

Respond ONLY with JSON, no markdown fences:
{"relation":"SUPPORTS|CONTRADICTS|REFINES|NEUTRAL","confidence":0.0,"rationale":"brief reason"}`
