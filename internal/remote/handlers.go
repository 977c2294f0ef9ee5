package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/dsp"
	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/playback"
	"github.com/llehouerou/ripple/internal/search"
	"github.com/llehouerou/ripple/internal/track"
)

// maxBodyBytes bounds request bodies; every command body is a few fields.
const maxBodyBytes = 64 << 10

type seekRequest struct {
	PositionMs int64 `json:"positionMs"`
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type selectRequest struct {
	ID       float64 `json:"id"`
	Autoplay *bool   `json:"autoplay,omitempty"`
}

type retagRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

type enqueueRequest struct {
	IDs []float64 `json:"ids"`
}

type bandRequest struct {
	Gain float64 `json:"gain"`
}

type qRequest struct {
	Q float64 `json:"q"`
}

type eqDTO struct {
	Gains []float64 `json:"gains"`
	Q     float64   `json:"q"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("remote: write response", zap.Error(err))
	}
}

// writeError answers with the status err maps to and a message naming op.
func writeError(w http.ResponseWriter, op errmsg.Op, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Warn("remote: request failed", zap.String("op", string(op)), zap.Error(err))
	}
	writeJSON(w, status, errorDTO{Error: errmsg.Format(op, err)})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, dsp.ErrBandIndex),
		errors.Is(err, playback.ErrEmptyTitle):
		return http.StatusBadRequest
	case errors.Is(err, track.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrEmptyQueue),
		errors.Is(err, errNoUndo),
		errors.Is(err, errNoRedo):
		return http.StatusConflict
	case errors.Is(err, playback.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest = errors.New("bad request")
	errNoUndo     = errors.New("no queue edit to undo")
	errNoRedo     = errors.New("no queue edit to redo")
)

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (float64, error) {
	id, err := strconv.ParseFloat(mux.Vars(r)["id"], 64)
	if err != nil {
		return 0, errors.Join(errBadRequest, err)
	}
	return id, nil
}

// done answers a command with the state it left behind.
func (s *Server) done(w http.ResponseWriter, op errmsg.Op, err error) {
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(s.service))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, snapshot(s.service))
}

func (s *Server) handleMetadata(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toMetadata(s.service.Metadata()))
}

func (s *Server) handleQueue(w http.ResponseWriter, _ *http.Request) {
	s.writeQueue(w)
}

func (s *Server) writeQueue(w http.ResponseWriter) {
	queue := s.service.Queue()
	writeJSON(w, http.StatusOK, queueDTO{
		Queue:       toTracks(queue),
		Index:       s.service.CurrentIndex(),
		QueueActive: len(queue) > 0,
	})
}

// handleEnqueue appends library tracks to the queue in request order. One
// unknown id rejects the whole request.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, errmsg.OpRequest, errors.Join(errBadRequest, errors.New("no ids")))
		return
	}
	byID := make(map[float64]track.Track)
	for _, t := range s.service.Library() {
		byID[t.ID] = t
	}
	tracks := make([]track.Track, 0, len(req.IDs))
	for _, id := range req.IDs {
		t, ok := byID[id]
		if !ok {
			writeError(w, errmsg.OpQueueEdit, fmt.Errorf("track %v: %w", id, track.ErrNotFound))
			return
		}
		tracks = append(tracks, t)
	}
	s.service.Enqueue(tracks...)
	s.writeQueue(w)
}

func (s *Server) handleClearQueue(w http.ResponseWriter, _ *http.Request) {
	s.service.ClearQueue()
	s.writeQueue(w)
}

func (s *Server) handleUndo(w http.ResponseWriter, _ *http.Request) {
	if !s.service.Undo() {
		writeError(w, errmsg.OpQueueUndo, errNoUndo)
		return
	}
	s.writeQueue(w)
}

func (s *Server) handleRedo(w http.ResponseWriter, _ *http.Request) {
	if !s.service.Redo() {
		writeError(w, errmsg.OpQueueRedo, errNoRedo)
		return
	}
	s.writeQueue(w)
}

// handleLibrary lists the library, ranked by ?q= when given.
func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	tracks := s.service.Library()
	if q := r.URL.Query().Get("q"); q != "" {
		tracks = search.NewMatcher(tracks).Tracks(q)
	}
	writeJSON(w, http.StatusOK, toTracks(tracks))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	if !s.inLibrary(id) {
		writeError(w, errmsg.OpLibraryDelete, track.ErrNotFound)
		return
	}
	s.service.RemoveFromLibrary(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	var req retagRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	if err := s.service.Retag(id, req.Title, req.Artist); err != nil {
		writeError(w, errmsg.OpLibraryRetag, err)
		return
	}
	for _, t := range s.service.Library() {
		if t.ID == id {
			writeJSON(w, http.StatusOK, toTrack(t))
			return
		}
	}
	writeError(w, errmsg.OpLibraryRetag, track.ErrNotFound)
}

func (s *Server) handlePlay(w http.ResponseWriter, _ *http.Request) {
	s.done(w, errmsg.OpPlaybackStart, s.service.Play())
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.service.Pause()
	s.done(w, errmsg.OpPlaybackMode, nil)
}

func (s *Server) handleToggle(w http.ResponseWriter, _ *http.Request) {
	s.done(w, errmsg.OpPlaybackStart, s.service.TogglePlay())
}

func (s *Server) handleNext(w http.ResponseWriter, _ *http.Request) {
	s.done(w, errmsg.OpPlaybackSkip, s.service.Next())
}

func (s *Server) handlePrevious(w http.ResponseWriter, _ *http.Request) {
	s.done(w, errmsg.OpPlaybackSkip, s.service.Previous())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	if req.PositionMs < 0 {
		writeError(w, errmsg.OpRequest, errors.Join(errBadRequest, errors.New("negative position")))
		return
	}
	s.done(w, errmsg.OpPlaybackSeek, s.service.Seek(time.Duration(req.PositionMs)*time.Millisecond))
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	s.service.SetVolume(req.Volume)
	s.done(w, errmsg.OpPlaybackMode, nil)
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	s.service.SetShuffle(req.Enabled)
	s.done(w, errmsg.OpPlaybackMode, nil)
}

func (s *Server) handleRepeat(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	s.service.SetRepeat(req.Enabled)
	s.done(w, errmsg.OpPlaybackMode, nil)
}

// handleSelect activates a queue or library entry by id. Entries already
// held in memory are passed as-is so transient tracks stay playable.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	autoplay := true
	if req.Autoplay != nil {
		autoplay = *req.Autoplay
	}
	s.done(w, errmsg.OpPlaybackSelect, s.service.SelectTrack(r.Context(), s.refFor(req.ID), autoplay))
}

func (s *Server) refFor(id float64) track.Ref {
	for _, list := range [][]track.Track{s.service.Queue(), s.service.Library()} {
		for _, t := range list {
			if t.ID == id {
				return track.QueueEntry{Track: t}
			}
		}
	}
	return track.LibraryReference{ID: id}
}

func (s *Server) inLibrary(id float64) bool {
	for _, t := range s.service.Library() {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) handleEQ(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toEQ(s.service.EQ()))
}

func (s *Server) handleBand(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, errmsg.OpRequest, errors.Join(errBadRequest, err))
		return
	}
	var req bandRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	if err := s.service.SetBandGain(index, req.Gain); err != nil {
		writeError(w, errmsg.OpEQUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toEQ(s.service.EQ()))
}

func (s *Server) handleQ(w http.ResponseWriter, r *http.Request) {
	var req qRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, errmsg.OpRequest, err)
		return
	}
	s.service.SetQFactor(req.Q)
	writeJSON(w, http.StatusOK, toEQ(s.service.EQ()))
}

func (s *Server) handleSpectrum(w http.ResponseWriter, _ *http.Request) {
	spectrum := s.service.Spectrum()
	if spectrum == nil {
		spectrum = []float64{}
	}
	writeJSON(w, http.StatusOK, spectrum)
}

func toEQ(eq dsp.EQ) eqDTO {
	return eqDTO{Gains: eq.Gains[:], Q: eq.Q}
}
