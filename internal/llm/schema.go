package llm

const (
	// Melody duration constraints, in beat units
	durationMin = 0.125
	durationMax = 6.0
)

// GetMelodyOutputSchema returns the JSON schema for AI melody generation.
// Providers enforce it, so the response parses directly into a score:
// measures of notes, each note a pitch name plus rhythm flags.
// Note: OpenAI requires additionalProperties: false, which means all
// properties must be listed in 'required'.
func GetMelodyOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"measures": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"notes": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"pitch": map[string]any{
										"type":        "string",
										"description": "Note name with octave, e.g. 'C4' or 'F#3'. Empty string for a rest.",
									},
									"duration": map[string]any{
										"type":    "number",
										"minimum": durationMin,
										"maximum": durationMax,
									},
									"is_rest":      map[string]any{"type": "boolean"},
									"is_dotted":    map[string]any{"type": "boolean"},
									"tied_to_next": map[string]any{"type": "boolean"},
								},
								"required":             []string{"pitch", "duration", "is_rest", "is_dotted", "tied_to_next"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []string{"notes"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"measures"},
		"additionalProperties": false,
	}
}
