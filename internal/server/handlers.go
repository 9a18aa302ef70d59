package server

import (
	"encoding/json"
	"errors"
	"io"
	"messenger-demo/internal/storage"
	"net/http"
	"strings"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// TODO limit reading from body

type parsers struct {
	registerPool    fastjson.ParserPool
	createChatPool  fastjson.ParserPool
	sendMessagePool fastjson.ParserPool
	createStoryPool fastjson.ParserPool
	listChatsPool   fastjson.ParserPool
}

type handler struct {
	logger  *zap.SugaredLogger
	store   *storage.Store
	parsers parsers
}

var statusOkPayload = []byte(`{"status":"ok"}`)

// respond writes a JSON payload with the given status code.
func (h *handler) respond(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

// respondMarshal marshals v and writes it with the given status code.
func (h *handler) respondMarshal(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.respond(w, status, payload)
}

// stringField extracts a required non-empty string field, writing the
// appropriate 400 response itself when the field is absent or invalid.
func stringField(w http.ResponseWriter, v *fastjson.Value, name string) (string, bool) {
	if !v.Exists(name) {
		http.Error(w, "Missing Field \""+name+"\"", http.StatusBadRequest)
		return "", false
	}

	fieldValue := v.Get(name)
	if fieldValue.Type() != fastjson.TypeString {
		http.Error(w, "Field \""+name+"\" must be a string", http.StatusBadRequest)
		return "", false
	}

	s := strings.Trim(string(fieldValue.MarshalTo(nil)), `"`)
	if len(s) == 0 {
		http.Error(w, "Field \""+name+"\" must have non-zero length", http.StatusBadRequest)
		return "", false
	}

	return s, true
}

// register handles HTTP requests on "/auth/register" endpoint.
// The freshly registered user is signed in right away.
func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.registerPool.Get()
	defer h.parsers.registerPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	username, ok := stringField(w, v, "username")
	if !ok {
		return
	}
	fullName, ok := stringField(w, v, "fullName")
	if !ok {
		return
	}
	email, ok := stringField(w, v, "email")
	if !ok {
		return
	}
	password, ok := stringField(w, v, "password")
	if !ok {
		return
	}

	avatar := fastjson.GetString(body, "avatar")
	if avatar == "" {
		avatar = "https://api.dicebear.com/7.x/avataaars/svg?seed=" + username
	}

	user, err := h.store.RegisterUser(storage.UserSpec{
		Username: username,
		FullName: fullName,
		Avatar:   avatar,
		Email:    email,
		Password: password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			http.Error(w, "User already exists", http.StatusBadRequest)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.store.SetCurrentUser(&user)

	h.respondMarshal(w, http.StatusCreated, user.Response())
}

// login handles HTTP requests on "/auth/login" endpoint
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	username := fastjson.GetString(body, "username")
	if len(username) == 0 {
		http.Error(w, "Field \"username\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}
	password := fastjson.GetString(body, "password")
	if len(password) == 0 {
		http.Error(w, "Field \"password\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	user, err := h.store.Login(username, password)
	if err != nil {
		if errors.Is(err, storage.ErrBadCredentials) {
			http.Error(w, "Wrong username or password", http.StatusBadRequest)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respondMarshal(w, http.StatusOK, user.Response())
}

// logout handles HTTP requests on "/auth/logout" endpoint
func (h *handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.store.Logout()
	h.respond(w, http.StatusOK, statusOkPayload)
}

// createChat handles HTTP requests on "/chats/create" endpoint
func (h *handler) createChat(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.createChatPool.Get()
	defer h.parsers.createChatPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	chatType, ok := stringField(w, v, "type")
	if !ok {
		return
	}

	t := storage.ChatType(chatType)
	if t != storage.ChatPersonal && t != storage.ChatGroup && t != storage.ChatChannel {
		http.Error(w, "Field \"type\" must be one of \"personal\", \"group\", \"channel\"", http.StatusBadRequest)
		return
	}

	name := fastjson.GetString(body, "name")
	if name == "" && t != storage.ChatPersonal {
		http.Error(w, "Field \"name\" must have non-zero length", http.StatusBadRequest)
		return
	}

	var participants []string
	if v.Exists("participants") {
		participantValues, err := v.Get("participants").Array()
		if err != nil {
			http.Error(w, "Field \"participants\" must be an array", http.StatusBadRequest)
			return
		}

		for _, pv := range participantValues {
			if pv.Type() != fastjson.TypeString {
				http.Error(w, "Each item in \"participants\" array field must be a string user id", http.StatusBadRequest)
				return
			}
			participants = append(participants, strings.Trim(string(pv.MarshalTo(nil)), `"`))
		}
	}

	chat, err := h.store.CreateChat(storage.ChatSpec{
		Type:         t,
		Name:         name,
		Avatar:       fastjson.GetString(body, "avatar"),
		Participants: participants,
		AdminID:      fastjson.GetString(body, "adminId"),
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotSignedIn):
			http.Error(w, "Sign in first", http.StatusUnauthorized)
			return
		case errors.Is(err, storage.ErrBadParticipants):
			http.Error(w, "Bad participants list", http.StatusBadRequest)
			return
		default:
			h.logger.Error(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	h.respondMarshal(w, http.StatusCreated, chat)
}

// openChat handles HTTP requests on "/chats/open" endpoint.
// An empty or absent "chat" field clears the active chat.
func (h *handler) openChat(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	chatID := fastjson.GetString(body, "chat")

	if err := h.store.SetActiveChat(chatID); err != nil {
		if errors.Is(err, storage.ErrChatNotExist) {
			http.Error(w, "Chat with provided id does not exist", http.StatusBadRequest)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respond(w, http.StatusOK, statusOkPayload)
}

// markChatRead handles HTTP requests on "/chats/read" endpoint
func (h *handler) markChatRead(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	chatID := fastjson.GetString(body, "chat")
	if len(chatID) == 0 {
		http.Error(w, "Field \"chat\" must be a string and have non-zero length", http.StatusBadRequest)
		return
	}

	if err := h.store.MarkChatRead(chatID); err != nil {
		if errors.Is(err, storage.ErrChatNotExist) {
			http.Error(w, "Chat with provided id does not exist", http.StatusBadRequest)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.respond(w, http.StatusOK, statusOkPayload)
}

// listChats handles HTTP requests on "/chats/get" endpoint.
// A "query" field turns the request into a search over names and message
// contents; a "type" field narrows to one chat type; neither returns the
// whole feed, newest first.
func (h *handler) listChats(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.listChatsPool.Get()
	defer h.parsers.listChatsPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	var chats []storage.Chat
	switch {
	case v.Exists("query"):
		query, ok := stringField(w, v, "query")
		if !ok {
			return
		}
		chats = h.store.SearchChats(query)
	case v.Exists("type"):
		chatType, ok := stringField(w, v, "type")
		if !ok {
			return
		}
		t := storage.ChatType(chatType)
		if t != storage.ChatPersonal && t != storage.ChatGroup && t != storage.ChatChannel {
			http.Error(w, "Field \"type\" must be one of \"personal\", \"group\", \"channel\"", http.StatusBadRequest)
			return
		}
		chats = h.store.ChatsByType(t)
	default:
		chats = h.store.Chats()
	}

	if chats == nil {
		chats = []storage.Chat{}
	}

	h.respondMarshal(w, http.StatusOK, chats)
}

// sendMessage handles HTTP requests on "/messages/send" endpoint.
// An absent "sender" field means the current user.
func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.sendMessagePool.Get()
	defer h.parsers.sendMessagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	chatID, ok := stringField(w, v, "chat")
	if !ok {
		return
	}
	content, ok := stringField(w, v, "content")
	if !ok {
		return
	}

	senderID := fastjson.GetString(body, "sender")

	msg, err := h.store.SendMessage(chatID, senderID, content)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrChatNotExist):
			http.Error(w, "Chat with provided id does not exist", http.StatusBadRequest)
			return
		case errors.Is(err, storage.ErrChannelPostDenied):
			http.Error(w, "Only the channel admin may post", http.StatusBadRequest)
			return
		case errors.Is(err, storage.ErrEmptyMessage):
			http.Error(w, "Field \"content\" must have non-zero length", http.StatusBadRequest)
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

	h.respondMarshal(w, http.StatusCreated, msg)
}
