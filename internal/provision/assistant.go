package provision

// The caller-information schemas are fixed in code, not in the yaml file:
// they must stay in lockstep with intake.CallerInfo and the webhook
// normalizer, so an operator editing a definition file cannot drift them.

// BuildParams carries the deployment-specific values merged into a
// definition.
type BuildParams struct {
	Brokerage     string
	WebhookURL    string
	WebhookSecret string
}

// callerInfoProperties is the shared property set for both the submission
// tool and the post-call structured-data extraction.
func callerInfoProperties() map[string]any {
	return map[string]any{
		"caller_name":  map[string]any{"type": "string", "description": "Full name of the caller"},
		"phone_number": map[string]any{"type": "string", "description": "Caller's phone number"},
		"email":        map[string]any{"type": "string", "description": "Caller's email address"},
		"caller_role": map[string]any{
			"type":        "string",
			"enum":        []string{"owner", "buyer", "broker", "lender", "tenant", "landlord", "investor", "other"},
			"description": "Role or interest of the caller",
		},
		"asset_type":         map[string]any{"type": "string", "description": "Type of commercial property (office, retail, industrial, multifamily, land, etc.)"},
		"location":           map[string]any{"type": "string", "description": "Desired location or region"},
		"reason_for_calling": map[string]any{"type": "string", "description": "Why they called and what they're hoping to accomplish"},
		"deal_size":          map[string]any{"type": "string", "description": "Budget range or deal size"},
		"urgency": map[string]any{
			"type":        "string",
			"enum":        []string{"immediate", "within_month", "within_quarter", "exploring", "unspecified"},
			"description": "Timeline or urgency level",
		},
		"additional_notes": map[string]any{"type": "string", "description": "Any additional context, requirements, or notes"},
		"inquiry_summary":  map[string]any{"type": "string", "description": "Brief summary of what the caller is looking for"},
	}
}

func submissionTool() map[string]any {
	return map[string]any{
		"type": "function",
		"messages": []map[string]any{
			{"type": "request-start", "content": "Let me record that information for you..."},
			{"type": "request-complete", "content": "Got it! I've saved your details."},
		},
		"function": map[string]any{
			"name":        "submit_caller_information",
			"description": "Submit collected caller information and inquiry details to the CRM system",
			"parameters": map[string]any{
				"type":       "object",
				"properties": callerInfoProperties(),
				"required":   []string{"caller_name", "phone_number", "inquiry_summary"},
			},
		},
	}
}

func analysisPlan() map[string]any {
	return map[string]any{
		"summaryPrompt":        "Provide a concise summary of this commercial real estate inquiry call, including what the caller was looking for and the outcome.",
		"structuredDataPrompt": "Extract the caller information from this conversation.",
		"structuredDataSchema": map[string]any{
			"type":       "object",
			"properties": callerInfoProperties(),
		},
		"successEvaluationPrompt": "Was the caller's inquiry successfully handled? Return true if we collected their information and can follow up, false otherwise.",
		"successEvaluationRubric": "NumericScale",
	}
}

// Build renders the full provider request body for an assistant.
func Build(def Definition, params BuildParams) map[string]any {
	body := map[string]any{
		"name": expand(def.Name, params.Brokerage),
		"model": map[string]any{
			"provider":    def.Model.Provider,
			"model":       def.Model.Model,
			"temperature": def.Model.Temperature,
			"messages": []map[string]any{
				{"role": "system", "content": expand(def.SystemPrompt, params.Brokerage)},
			},
			"tools": []map[string]any{submissionTool()},
		},
		"analysisPlan":        analysisPlan(),
		"firstMessage":        expand(def.FirstMessage, params.Brokerage),
		"endCallMessage":      expand(def.EndCallMessage, params.Brokerage),
		"endCallPhrases":      def.EndCallPhrases,
		"serverMessages":      def.ServerMessages,
		"clientMessages":      def.ClientMessages,
		"maxDurationSeconds":  def.MaxDurationSeconds,
		"metadata": map[string]any{
			"agent_type": "inbound_commercial_real_estate",
			"version":    "1.0",
			"created_by": params.Brokerage + " AI System",
		},
	}

	if def.Voice.Provider != "" {
		body["voice"] = map[string]any{
			"provider": def.Voice.Provider,
			"voiceId":  def.Voice.VoiceID,
			"model":    def.Voice.Model,
			"language": def.Voice.Language,
		}
	}
	if def.Transcriber.Provider != "" {
		body["transcriber"] = map[string]any{
			"provider":    def.Transcriber.Provider,
			"model":       def.Transcriber.Model,
			"language":    def.Transcriber.Language,
			"smartFormat": def.Transcriber.SmartFormat,
		}
	}
	if def.BackgroundSound != "" {
		body["backgroundSound"] = def.BackgroundSound
	}
	if params.WebhookURL != "" {
		body["server"] = map[string]any{
			"url":    params.WebhookURL,
			"secret": params.WebhookSecret,
		}
	}
	return body
}
