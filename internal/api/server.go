// Package api exposes a small HTTP introspection surface over the running
// exporter: liveness, flow table counters, scheduler counters, and the
// active IPFIX template. Grounded on cmd/ns-api's mux.NewRouter +
// *http.Server + graceful-shutdown shape; this package only supplies the
// router and handlers, the teacher's binary owned the process lifecycle
// and so does ours (cmd/flowexporterd).
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"flowexporter/internal/expiry"
	"flowexporter/internal/flow"
	"flowexporter/internal/ipfix"
)

// Handler holds the dependencies for the introspection endpoints. There is
// no protobuf schema for these diagnostics, unlike the teacher's
// aggregate/trace request-response bodies, so encoding/json is the
// natural fit here rather than protojson.
type Handler struct {
	Table     *flow.Table
	Scheduler *expiry.Scheduler
	Template  *ipfix.Template
}

// NewRouter builds the mux.Router for the introspection server.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.stats).Methods(http.MethodGet)
	r.HandleFunc("/template", h.template).Methods(http.MethodGet)
	r.HandleFunc("/flows", h.flows).Methods(http.MethodGet)
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statsResponse struct {
	Table     flow.Stats   `json:"table"`
	Scheduler expiry.Stats `json:"scheduler"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Table:     h.Table.Stats(),
		Scheduler: h.Scheduler.Stats(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) template(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(h.Template.String()))
}

// flowView is the JSON-friendly projection of a live flow.Record: the
// 48-byte Key doesn't marshal meaningfully on its own, so it is expanded
// into its 5-tuple fields instead.
type flowView struct {
	SrcIP            string `json:"src_ip"`
	DstIP            string `json:"dst_ip"`
	Protocol         uint8  `json:"protocol"`
	SrcPort          uint16 `json:"src_port"`
	DstPort          uint16 `json:"dst_port"`
	FlowStartMs      int64  `json:"flow_start_ms"`
	FlowEndMs        int64  `json:"flow_end_ms"`
	PacketDeltaCount uint64 `json:"packets"`
	OctetDeltaCount  uint64 `json:"octets"`
}

// flows is a debug dump of every live (unexpired) flow record, standing
// in for the original's format_netflow_v10_data_packet/template dumpers:
// a human can hit this endpoint and see every live flow's current
// counters, without waiting for the flow to expire and be exported.
func (h *Handler) flows(w http.ResponseWriter, r *http.Request) {
	live := h.Table.DeepCopyLive()
	views := make([]flowView, 0, len(live))
	for _, rec := range live {
		views = append(views, flowView{
			SrcIP:            rec.Key.SrcIP().String(),
			DstIP:            rec.Key.DstIP().String(),
			Protocol:         rec.Key.Protocol(),
			SrcPort:          rec.Key.SrcPort(),
			DstPort:          rec.Key.DstPort(),
			FlowStartMs:      rec.FlowStartMs,
			FlowEndMs:        rec.FlowEndMs,
			PacketDeltaCount: rec.PacketDeltaCount,
			OctetDeltaCount:  rec.OctetDeltaCount,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}
