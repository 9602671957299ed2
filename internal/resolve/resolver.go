// Package resolve reconciles model-reported services with the vendor registry.
package resolve

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/llm"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/registry"
)

type Resolver struct {
	reg    *registry.Registry
	logger *slog.Logger
}

func New(reg *registry.Registry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{reg: reg, logger: logger}
}

// Reconcile assigns registry ids and final confidences. A known model id is kept;
// an unknown one is dropped and the name re-resolved, taking the larger of the model
// and match confidence. Names that stay unresolved are listed once in unmatchedItems.
func (r *Resolver) Reconcile(in entity.AnalysisResult) entity.AnalysisResult {
	out := in
	out.Services = make([]entity.ExtractedService, 0, len(in.Services))
	var notes []string
	var unresolved []string
	resolvedNames := map[string]struct{}{}

	for _, s := range in.Services {
		s.Confidence = llm.ClampConfidence(s.Confidence)

		if s.RegistryID != nil {
			if e, ok := r.reg.Lookup(*s.RegistryID); ok {
				id := e.ID
				s.RegistryID = &id
				resolvedNames[registry.Fold(s.DetectedName)] = struct{}{}
				out.Services = append(out.Services, s)
				continue
			}
			notes = append(notes, fmt.Sprintf("unknown registryId %q for %q dropped", *s.RegistryID, s.DetectedName))
			r.logger.Warn("resolve.unknown_registry_id", "registry_id", *s.RegistryID, "name", s.DetectedName)
			s.RegistryID = nil
		}

		if id, score := r.reg.Resolve(s.DetectedName); id != nil {
			s.RegistryID = id
			s.Confidence = max(s.Confidence, score)
			resolvedNames[registry.Fold(s.DetectedName)] = struct{}{}
		} else {
			unresolved = append(unresolved, s.DetectedName)
		}
		out.Services = append(out.Services, s)
	}

	seen := map[string]struct{}{}
	out.UnmatchedItems = make([]string, 0, len(in.UnmatchedItems)+len(unresolved))
	add := func(item string) {
		item = strings.TrimSpace(item)
		key := registry.Fold(item)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		if _, isService := resolvedNames[key]; isService {
			return
		}
		seen[key] = struct{}{}
		out.UnmatchedItems = append(out.UnmatchedItems, item)
	}
	for _, item := range in.UnmatchedItems {
		add(item)
	}
	for _, name := range unresolved {
		add(name)
	}

	if len(notes) > 0 {
		extra := strings.Join(notes, "; ")
		if out.ProcessingNotes == "" {
			out.ProcessingNotes = extra
		} else {
			out.ProcessingNotes += "; " + extra
		}
	}
	return out
}
