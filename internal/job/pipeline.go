package job

import (
	"context"
	"time"

	"github.com/nodecore/node/internal/inbox"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/wire"
)

// InferenceRequest is what Pipeline hands to a provider after merging scope
// and resolving context (spec.md §4.3 steps 1-4).
type InferenceRequest struct {
	Job               *Job
	RequesterFullName string
	UserContent       string
	MergedScope       []string
	ExecutionContext  ExecutionContext
}

// InferenceResponse is a provider's reply before it is posted back to the
// conversation inbox.
type InferenceResponse struct {
	AssistantContent string
	ExecutionContext ExecutionContext
}

// AttachmentDetector inspects a raw user message for special-format
// attachments (spec.md §4.3 step 2, detailed in §4.4's tool-router
// handling) and returns any extra scope paths they imply — e.g. a tool
// invocation that needs a working directory. Pipeline treats a nil detector
// as "no special attachments".
type AttachmentDetector interface {
	DetectAttachments(ctx context.Context, userContent string) ([]string, error)
}

// InferenceProvider dispatches an InferenceRequest to a concrete LLM
// backend. Implementations live in internal/providers/*; job only depends
// on this interface so the inference chain selection (spec.md §4.3 step 4:
// "dispatch to an inference chain chosen by the provider's kind") stays a
// caller concern.
type InferenceProvider interface {
	RunInference(ctx context.Context, req InferenceRequest) (InferenceResponse, error)
}

// Pipeline runs the job inference chain (spec.md §4.3): fetch job/provider,
// merge scope, dispatch, and on success or failure always post a reply to
// the conversation inbox keyed to the same parent message.
type Pipeline struct {
	registry  *Registry
	inboxes   *inbox.Store
	providers map[string]InferenceProvider
	detector  AttachmentDetector
}

// NewPipeline constructs a Pipeline. providers maps an LLM provider id to
// the InferenceProvider that serves it. detector may be nil.
func NewPipeline(registry *Registry, inboxes *inbox.Store, providers map[string]InferenceProvider, detector AttachmentDetector) *Pipeline {
	return &Pipeline{registry: registry, inboxes: inboxes, providers: providers, detector: detector}
}

// agentScope resolves the additional file/folder scope an agent or provider
// declares, beyond the job's own declared scope (spec.md §4.3 step 3). The
// node has no separate agent-scope store in this module; callers that need
// per-agent scope augmentation should extend ExecutionContext with it, so
// this always returns nil and the merge below reduces to job scope ∪
// message-level extra scope.
func agentScope(_ *Job) []string { return nil }

func mergeScope(job *Job, messageScope []string) []string {
	seen := make(map[string]bool, len(job.Scope)+len(messageScope))
	var merged []string
	add := func(paths []string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				merged = append(merged, p)
			}
		}
	}
	add(job.Scope)
	add(agentScope(job))
	add(messageScope)
	return merged
}

// Run executes the inference pipeline for one inbound job message.
// userContent is the plain text already extracted by the API validator
// (C9); messageScope is any additional file/folder scope attached to this
// specific message. Failures of the inference steps (provider lookup,
// execution-context lookup, attachment detection, the provider call) are
// posted back to the conversation inbox as an error reply (step 6) rather
// than returned raw, so the user always sees a response; for those, the
// returned error is non-nil only when posting that error reply itself
// fails. Errors loading the job or writing the user message, the assistant
// reply, the step history or the execution context are returned directly.
func (p *Pipeline) Run(ctx context.Context, jobID, requesterFullName, userContent string, messageScope []string, now time.Time) error {
	j, err := p.registry.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	userMsgHash, insertErr := p.inboxes.InsertMessage(ctx, j.ConversationInbox, requesterFullName, textEnvelope(userContent), "", now)
	if insertErr != nil {
		return insertErr
	}

	provider, ok := p.providers[j.LLMProviderID]
	if !ok {
		return p.postError(ctx, j, userMsgHash, now, nodeerr.Errorf(nodeerr.NotFound, "no inference provider registered for %q", j.LLMProviderID))
	}

	execCtx, ecErr := p.registry.ExecutionContext(ctx, jobID, userMsgHash)
	if ecErr != nil && !nodeerr.Is(ecErr, nodeerr.NotFound) {
		return p.postError(ctx, j, userMsgHash, now, ecErr)
	}

	attachmentScope := messageScope
	if p.detector != nil {
		extra, detectErr := p.detector.DetectAttachments(ctx, userContent)
		if detectErr != nil {
			return p.postError(ctx, j, userMsgHash, now, detectErr)
		}
		attachmentScope = append(append([]string{}, messageScope...), extra...)
	}

	req := InferenceRequest{
		Job:               j,
		RequesterFullName: requesterFullName,
		UserContent:       userContent,
		MergedScope:       mergeScope(j, attachmentScope),
		ExecutionContext:  execCtx,
	}
	resp, runErr := provider.RunInference(ctx, req)
	if runErr != nil {
		return p.postError(ctx, j, userMsgHash, now, runErr)
	}

	assistantTs := now.Add(time.Millisecond)
	assistantHash, insertErr := p.inboxes.InsertMessage(ctx, j.ConversationInbox, j.LLMProviderID, textEnvelope(resp.AssistantContent), userMsgHash, assistantTs)
	if insertErr != nil {
		return insertErr
	}

	if err := p.registry.AddStepHistory(ctx, jobID, StepResult{
		UserMessageHash:      userMsgHash,
		UserContent:          userContent,
		AssistantMessageHash: assistantHash,
		AssistantContent:     resp.AssistantContent,
		Timestamp:            assistantTs,
	}); err != nil {
		return err
	}
	if resp.ExecutionContext != nil {
		if err := p.registry.SetExecutionContext(ctx, jobID, resp.ExecutionContext, assistantHash); err != nil {
			return err
		}
	}
	return nil
}

// postError posts an error reply to the job's conversation inbox keyed to
// parentHash, so the user always sees a response (spec.md §4.3 step 6).
func (p *Pipeline) postError(ctx context.Context, j *Job, parentHash string, now time.Time, cause error) error {
	_, err := p.inboxes.InsertMessage(ctx, j.ConversationInbox, j.LLMProviderID, textEnvelope("error: "+cause.Error()), parentHash, now.Add(time.Millisecond))
	return err
}

func textEnvelope(content string) wire.Envelope {
	return wire.Envelope{
		Body:        []byte(content),
		InnerSchema: wire.SchemaTextContent,
	}
}
