package agent

import (
	"fmt"
	"strings"
)

// InitialObservation seeds the first prompt of a run.
const InitialObservation = "Task started. You should begin by reading the design and spec files."

// systemPrompt sets the role, the workflow and the response grammar.
func (c *Controller) systemPrompt() string {
	basePrompt := `You are an expert software architect following a ReAct framework.
Your job is to generate a complete application based on provided design and specification JSON files.`

	toolsPrompt := "\n\nAVAILABLE TOOLS:\n" + c.registry.Catalog()

	workflowPrompt := `
WORKFLOW:
1. Read the design file using read_design_file
2. Read the spec file using read_spec_file
3. Create project structure using project_structure
4. Generate files using file_generator (one file per call) or generate_project_files (all remaining files)
5. Validate the project using project_validator
6. Create run script using create_run_script
`

	return basePrompt + toolsPrompt + workflowPrompt + formatPrompt
}

const formatPrompt = `
RESPONSE FORMAT:
You must follow this exact format in each iteration:

Thought: [Explain what you need to do next and why]
Action: [tool_name]: {"parameter": "value"}
PAUSE

Wait for the Observation, then continue with the next step.
When completely finished, provide your final response as:
Answer: [Summary of what was accomplished]

IMPORTANT RULES:
- Action inputs must be valid JSON objects
- Always include PAUSE after each Action
- Use the tools in the correct sequence
- Each file_generator call should generate ONE specific file
`

// userPrompt renders the per-iteration prompt from the state summary, the
// tool catalog, the trailing history window and the last Observation.
func (c *Controller) userPrompt(observation string) string {
	var b strings.Builder
	b.WriteString("You are an autonomous software engineering agent. Follow a strict `Thought -> Action -> PAUSE -> Observation` loop.\n")
	b.WriteString("Your goal is to build a complete software project by following the user's task.\n\n")

	fmt.Fprintf(&b, "**Current Progress:**\n%s\n\n", c.state.Summary())
	if pending := c.state.Pending(); len(pending) > 0 {
		fmt.Fprintf(&b, "**Files Not Yet Generated:**\n%s\n\n", strings.Join(pending, "\n"))
	}
	fmt.Fprintf(&b, "**Tools Available:**\n%s\n", c.registry.Catalog())
	fmt.Fprintf(&b, "**Conversation History:**\n%s\n\n", strings.Join(c.history.Tail(c.cfg.PromptWindow), "\n"))
	fmt.Fprintf(&b, "**Last Observation:**\n%s\n\n", observation)

	b.WriteString(`**Your Task:**
Based on the history and the last observation, decide the next logical step.
1.  Think about what you need to do next.
2.  Choose the single best action from the ` + "`Tools Available`" + ` list.
3.  Format your response STRICTLY as follows, with a JSON object for the input:

Thought: [Your reasoning and plan for the next step.]
Action: [action_name]: {"parameter_name": "value"}
PAUSE

Or, if the entire project is built successfully:

Thought: [Your reasoning that the project is complete.]
Answer: [A summary of the result.]
`)
	return b.String()
}
