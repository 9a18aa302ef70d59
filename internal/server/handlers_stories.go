package server

import (
	"errors"
	"io"
	"messenger-demo/internal/storage"
	"net/http"

	"github.com/valyala/fastjson"
)

// createStory handles HTTP requests on "/stories/create" endpoint.
// An absent "user" field means the current user.
func (h *handler) createStory(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.createStoryPool.Get()
	defer h.parsers.createStoryPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	imageURL, ok := stringField(w, v, "imageUrl")
	if !ok {
		return
	}

	userID := fastjson.GetString(body, "user")

	story, err := h.store.CreateStory(userID, imageURL)
	if err != nil {
		if errors.Is(err, storage.ErrNotSignedIn) {
			http.Error(w, "Sign in first", http.StatusUnauthorized)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondMarshal(w, http.StatusCreated, story)
}

// viewStory handles HTTP requests on "/stories/view" endpoint.
// An absent "viewer" field means the current user.
func (h *handler) viewStory(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	storyID := fastjson.GetString(body, "story")
	if len(storyID) == 0 {
		http.Error(w, "Field \"story\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	viewerID := fastjson.GetString(body, "viewer")
	if viewerID == "" {
		current := h.store.CurrentUser()
		if current == nil {
			http.Error(w, "Sign in first", http.StatusUnauthorized)
			return
		}
		viewerID = current.ID
	}

	if err := h.store.MarkStoryViewed(storyID, viewerID); err != nil {
		if errors.Is(err, storage.ErrStoryNotExist) {
			http.Error(w, "Story with provided id does not exist", http.StatusBadRequest)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respond(w, http.StatusOK, statusOkPayload)
}

// listStories handles HTTP requests on "/stories/get" endpoint.
// Only stories inside their 24h window are returned. A "user" field
// splits the result into that owner's rail and everyone else's.
func (h *handler) listStories(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	if userID := fastjson.GetString(body, "user"); userID != "" {
		mine, others := h.store.StoriesByOwner(userID)
		if mine == nil {
			mine = []storage.Story{}
		}
		if others == nil {
			others = []storage.Story{}
		}
		h.respondMarshal(w, http.StatusOK, map[string][]storage.Story{
			"mine":   mine,
			"others": others,
		})
		return
	}

	stories := h.store.ActiveStories()
	if stories == nil {
		stories = []storage.Story{}
	}

	h.respondMarshal(w, http.StatusOK, stories)
}

// subscribeChannel handles HTTP requests on "/channels/subscribe" endpoint
func (h *handler) subscribeChannel(w http.ResponseWriter, r *http.Request) {
	h.channelMembership(w, r, h.store.SubscribeChannel)
}

// unsubscribeChannel handles HTTP requests on "/channels/unsubscribe" endpoint
func (h *handler) unsubscribeChannel(w http.ResponseWriter, r *http.Request) {
	h.channelMembership(w, r, h.store.UnsubscribeChannel)
}

func (h *handler) channelMembership(w http.ResponseWriter, r *http.Request, op func(string) error) {
	body, _ := io.ReadAll(r.Body)

	chatID := fastjson.GetString(body, "chat")
	if len(chatID) == 0 {
		http.Error(w, "Field \"chat\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	if err := op(chatID); err != nil {
		switch {
		case errors.Is(err, storage.ErrChatNotExist):
			http.Error(w, "Chat with provided id does not exist", http.StatusBadRequest)
			return
		case errors.Is(err, storage.ErrNotChannel):
			http.Error(w, "Chat is not a channel", http.StatusBadRequest)
			return
		case errors.Is(err, storage.ErrNotSignedIn):
			http.Error(w, "Sign in first", http.StatusUnauthorized)
			return
		default:
			h.logger.Error(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	h.respond(w, http.StatusOK, statusOkPayload)
}

// searchUsers handles HTTP requests on "/users/search" endpoint
func (h *handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	if !fastjson.Exists(body, "query") {
		http.Error(w, "Missing Field \"query\"", http.StatusBadRequest)
		return
	}

	query := fastjson.GetString(body, "query")
	if len(query) == 0 {
		http.Error(w, "Field \"query\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	users := h.store.SearchUsers(query)
	responses := make([]storage.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, u.Response())
	}

	h.respondMarshal(w, http.StatusOK, responses)
}
