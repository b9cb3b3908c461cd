package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still wrap it with the
// middleware chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Campaign lifecycle
	ch := CampaignHandler{Store: d.Store, CfgVal: d.CfgVal}
	rh := RunHandler{Runner: d.Runner, TriggerToken: d.TriggerToken, RunStatus: d.RunStatus}
	mux.HandleFunc("/campaigns", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ch.List,
		http.MethodPost: ch.Create,
	}))
	mux.HandleFunc("/campaigns/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.GetByPath, // /campaigns/{id} and /campaigns/{id}/applications
		http.MethodPost: func(w http.ResponseWriter, r *http.Request) {
			// /campaigns/{id}/run dispatches inline, the rest are transitions
			if _, action := splitCampaignPath(r.URL.Path); action == "run" {
				rh.ManualByPath(w, r)
				return
			}
			ch.TransitionByPath(w, r)
		},
	}))

	// Profile
	ph := ProfileHandler{Store: d.Store}
	mux.HandleFunc("/profile", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.Get,
		http.MethodPut: ph.Put,
	}))

	// Triggers
	mux.HandleFunc("/run/scheduled", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.Scheduled,
	}))
	mux.HandleFunc("/run/manual", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.Manual,
	}))
	mux.HandleFunc("/run/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.Status,
	}))

	// Config
	cfgh := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: cfgh.Get,
		http.MethodPut: cfgh.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: cfgh.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: cfgh.Validate,
	}))

	// Secrets (values go straight to the keychain)
	sh := SecretsHandler{}
	mux.HandleFunc("/secrets", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.Set,
		http.MethodDelete: sh.Delete,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Health
	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
