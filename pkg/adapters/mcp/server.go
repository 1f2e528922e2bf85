package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wyrdbound/grimoire"
	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/objects"
	"github.com/wyrdbound/grimoire/pkg/runner"
	"github.com/wyrdbound/grimoire/pkg/schema"
)

// RunResult is the structured payload of the run_flow tool.
type RunResult struct {
	FlowID  string         `json:"flow_id" jsonschema_description:"The id of the executed flow"`
	Outputs map[string]any `json:"outputs" jsonschema_description:"The flow's declared outputs"`
}

// SessionResult is the structured payload of the session tools. Error is
// set when the run stopped early; the session then holds its last
// checkpoint and can be continued with resume_session.
type SessionResult struct {
	Session *domain.Session `json:"session" jsonschema_description:"The persisted session snapshot"`
	Outputs map[string]any  `json:"outputs,omitempty" jsonschema_description:"Flow outputs, present once completed"`
	Error   string          `json:"error,omitempty" jsonschema_description:"Why the run stopped, if it did"`
}

// Server exposes a loaded game system as an MCP server: tools to discover
// and execute flows, resources for the raw definitions.
type Server struct {
	eng       *grimoire.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer wraps an engine in an MCP server. Input steps are answered
// from the answers argument of the calling tool, so wire the engine with
// runner.Scripted as its interaction.
func NewServer(eng *grimoire.Engine, opts ...Option) *Server {
	s := &Server{
		eng:       eng,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("grimoire-mcp", grimoire.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, shutting down
// gracefully when ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List every flow in the loaded game system."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type summary struct {
			ID          string `json:"id"`
			Name        string `json:"name,omitempty"`
			Description string `json:"description,omitempty"`
		}
		sys := s.eng.System()
		flows := make([]summary, 0, len(sys.Flows))
		for _, id := range sys.FlowIDs() {
			flow, err := sys.Flow(id)
			if err != nil {
				continue
			}
			flows = append(flows, summary{ID: flow.ID, Name: flow.Name, Description: flow.Description})
		}
		jsonBytes, _ := json.Marshal(flows)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("describe_flow",
		mcp.WithDescription("Get the full definition of one flow: inputs, outputs, steps and resume points."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("The id of the flow")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		flowID, err := request.RequireString("flow_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		flow, err := s.eng.System().Flow(flowID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		detail := struct {
			*domain.FlowDefinition
			InputSchema  schema.Schema `json:"input_schema,omitempty"`
			OutputSchema schema.Schema `json:"output_schema,omitempty"`
		}{flow, objects.SlotSchema(flow.Inputs), objects.SlotSchema(flow.Outputs)}
		jsonBytes, _ := json.Marshal(detail)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	runTool := mcp.NewTool("run_flow",
		mcp.WithDescription("Execute a flow to completion and return its outputs."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("The id of the flow to run")),
		mcp.WithString("inputs", mcp.Description("JSON object of flow inputs (optional)")),
		mcp.WithString("answers", mcp.Description("JSON array answering input and choice steps in order: strings for free-form input, 0-based numbers or option ids for choices (optional)")),
		mcp.WithOutputSchema[RunResult](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunFlow))

	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Run a flow under a persisted session. A run that stops at an input step keeps its checkpoint and can be continued with resume_session."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("The id of the flow to run")),
		mcp.WithString("inputs", mcp.Description("JSON object of flow inputs (optional)")),
		mcp.WithString("answers", mcp.Description("JSON array answering input and choice steps in order (optional)")),
		mcp.WithOutputSchema[SessionResult](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	resumeTool := mcp.NewTool("resume_session",
		mcp.WithDescription("Continue a suspended session, optionally supplying more answers."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The id of the session")),
		mcp.WithString("answers", mcp.Description("JSON array answering input and choice steps in order (optional)")),
		mcp.WithOutputSchema[SessionResult](),
	)
	s.mcpServer.AddTool(resumeTool, mcp.NewStructuredToolHandler(s.handleResumeSession))

	s.mcpServer.AddTool(mcp.NewTool("validate_system",
		mcp.WithDescription("Re-check the loaded system's cross-references and list the problems found."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		problems := s.eng.Validate()
		if problems == nil {
			problems = []string{}
		}
		jsonBytes, _ := json.Marshal(problems)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleRunFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunResult, error) {
	flowID, _ := args["flow_id"].(string)
	inputs, answers, err := parseRunArgs(args)
	if err != nil {
		return RunResult{}, err
	}
	if err := s.checkInputs(flowID, inputs); err != nil {
		return RunResult{}, err
	}

	result, err := s.eng.RunFlow(runner.WithAnswers(ctx, answers), flowID, inputs)
	if err != nil {
		return RunResult{}, fmt.Errorf("run failed: %w", err)
	}
	return RunResult{FlowID: result.FlowID, Outputs: result.Outputs}, nil
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SessionResult, error) {
	flowID, _ := args["flow_id"].(string)
	inputs, answers, err := parseRunArgs(args)
	if err != nil {
		return SessionResult{}, err
	}
	if err := s.checkInputs(flowID, inputs); err != nil {
		return SessionResult{}, err
	}

	sess, result, err := s.eng.StartSession(runner.WithAnswers(ctx, answers), flowID, inputs)
	return sessionResult(sess, result, err)
}

func (s *Server) handleResumeSession(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SessionResult, error) {
	id, _ := args["session_id"].(string)
	_, answers, err := parseRunArgs(args)
	if err != nil {
		return SessionResult{}, err
	}

	sess, result, err := s.eng.ResumeSession(runner.WithAnswers(ctx, answers), id)
	return sessionResult(sess, result, err)
}

func sessionResult(sess *domain.Session, result *domain.FlowResult, err error) (SessionResult, error) {
	if err != nil && sess == nil {
		return SessionResult{}, err
	}
	res := SessionResult{Session: sess}
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	res.Outputs = result.Outputs
	return res, nil
}

// checkInputs validates provided flow inputs against the flow's declared
// slots so malformed calls fail with every problem listed, not mid-run.
func (s *Server) checkInputs(flowID string, inputs map[string]any) error {
	flow, err := s.eng.System().Flow(flowID)
	if err != nil {
		return err
	}
	return objects.ValidateInputs(flow, inputs)
}

func parseRunArgs(args map[string]any) (map[string]any, []any, error) {
	var inputs map[string]any
	if raw, ok := args["inputs"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
			return nil, nil, fmt.Errorf("inputs must be a JSON object: %w", err)
		}
	}

	var answers []any
	if raw, ok := args["answers"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			return nil, nil, fmt.Errorf("answers must be a JSON array: %w", err)
		}
	}
	return inputs, answers, nil
}

func (s *Server) registerResources() {
	sysID := s.eng.System().System.ID

	s.mcpServer.AddResource(mcp.NewResource("grimoire://system", "Loaded Game System",
		mcp.WithResourceDescription(fmt.Sprintf("Full definition of the '%s' system: models, flows, tables, compendiums and prompts.", sysID)),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.eng.System())
		if err != nil {
			return nil, fmt.Errorf("failed to serialize system: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "grimoire://system",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource("grimoire://flows", "Flow Index",
		mcp.WithResourceDescription("The ids of every flow in the loaded system."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.eng.Flows())
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "grimoire://flows",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
