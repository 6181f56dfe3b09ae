package analysis

// analysisPrompt is the fixed instruction sent with every frame batch. The
// model must answer with a JSON object carrying a steps array.
const analysisPrompt = `You are analyzing sequential screenshots captured from a screen recording of a business workflow.

Identify the ordered steps the user performs. Respond with a JSON object of the form:

{
  "steps": [
    {
      "type": "navigation | input | click | review | other",
      "action": "short imperative name of the action",
      "description": "one sentence describing what happens and why",
      "confidence": 0-100,
      "timestampSeconds": optional number, seconds from the start of the recording
    }
  ]
}

Rules:
- Order steps chronologically.
- Merge duplicate frames showing the same action into one step.
- confidence reflects how certain you are the step happens as described.
- Respond with JSON only.`
