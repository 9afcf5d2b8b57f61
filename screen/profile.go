package screen

import (
	"context"
	"sync"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/sirupsen/logrus"
)

const (
	MsgProfileCreated = "Profile created automatically!"
	MsgProfileUpdated = "Profile updated!"
	MsgSelectImage    = "You must select an image to upload."
	MsgAvatarUploaded = "Avatar uploaded and profile updated!"
	MsgNotAnImage     = "Avatar must be a PNG, JPEG, GIF or WebP image."

	avatarCacheControl = "3600"
)

type ProfileState struct {
	UserId    persona.UserId
	Email     string
	Username  string
	AvatarUrl *string
	Message   string
	// Loaded is set once a profile record was resolved for the session.
	Loaded    bool
	Loading   bool
	Uploading bool
}

// ProfileScreen resolves and edits the profile of the current session.
//
// Every remote call captures the screen generation before it starts and
// applies its result only if the generation is unchanged, so results for a
// session that was replaced in the meantime are dropped.
type ProfileScreen struct {
	store    persona.ProfileStore
	blobs    persona.BlobStore
	provider persona.SessionProvider
	log      logrus.FieldLogger
	now      func() time.Time

	mutex      sync.Mutex
	generation uint64
	session    *persona.Session
	username   string
	avatarUrl  *string
	message    string
	loaded     bool
	loading    bool
	uploading  bool
	// generation whose bootstrap is running or done, 0 when none
	bootstrapped uint64
}

func NewProfileScreen(store persona.ProfileStore, blobs persona.BlobStore,
	provider persona.SessionProvider, log logrus.FieldLogger) *ProfileScreen {
	return &ProfileScreen{
		store:    store,
		blobs:    blobs,
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// Reset discards all local state and binds the screen to session (nil when
// signed out).
func (s *ProfileScreen) Reset(session *persona.Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.generation++
	s.session = copySession(session)
	s.username = ""
	s.avatarUrl = nil
	s.message = ""
	s.loaded = false
	s.loading = false
	s.uploading = false
	s.bootstrapped = 0
}

// SetSession swaps the session of the same identity (e.g. after token
// refresh) keeping local edits.
func (s *ProfileScreen) SetSession(session persona.Session) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.session = &session
}

func (s *ProfileScreen) State() ProfileState {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state := ProfileState{
		Username:  s.username,
		AvatarUrl: copyString(s.avatarUrl),
		Message:   s.message,
		Loaded:    s.loaded,
		Loading:   s.loading,
		Uploading: s.uploading,
	}
	if s.session != nil {
		state.UserId = s.session.UserId
		state.Email = s.session.Email
	}
	return state
}

// EnsureLoaded runs Load once per session binding.
func (s *ProfileScreen) EnsureLoaded(ctx context.Context) {
	s.load(ctx, true)
}

// Load resolves exactly one profile for the bound session, creating it with
// the default username when the store has none.
func (s *ProfileScreen) Load(ctx context.Context) {
	s.load(ctx, false)
}

func (s *ProfileScreen) load(ctx context.Context, once bool) {
	s.mutex.Lock()
	if s.session == nil || (once && s.bootstrapped == s.generation) {
		s.mutex.Unlock()
		return
	}
	gen := s.generation
	session := *s.session
	s.bootstrapped = gen
	s.loading = true
	s.mutex.Unlock()

	result := s.bootstrap(ctx, session)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if gen != s.generation {
		s.log.WithField("user_id", session.UserId).Debugln("Dropping stale profile bootstrap result.")
		return
	}
	s.loading = false
	s.message = result.message
	if result.profile != nil {
		s.username = result.profile.Username
		s.avatarUrl = copyString(result.profile.AvatarUrl)
		s.loaded = true
	}
}

type bootstrapResult struct {
	profile *persona.Profile
	message string
}

func (s *ProfileScreen) bootstrap(ctx context.Context, session persona.Session) bootstrapResult {
	log := s.log.WithField("user_id", session.UserId)

	profile, err := s.store.Get(ctx, session.UserId)
	if err == nil {
		return bootstrapResult{profile: &profile}
	}
	if persona.KindOf(err) != persona.KindNotFound {
		log.WithError(err).Warnln("Could not load profile.")
		return bootstrapResult{message: "Error loading profile: " + err.Error()}
	}

	log.Infoln("No profile found, creating a new one.")
	profile = persona.Profile{
		UserId:    session.UserId,
		Username:  persona.DefaultUsername(session.Email),
		UpdatedAt: s.now().UTC(),
	}
	err = s.store.Insert(ctx, profile)
	switch {
	case err == nil:
		return bootstrapResult{profile: &profile, message: MsgProfileCreated}
	case persona.KindOf(err) == persona.KindConflict:
		// another client created it between our lookup and insert
		existing, err := s.store.Get(ctx, session.UserId)
		if err != nil {
			log.WithError(err).Warnln("Could not reload concurrently created profile.")
			return bootstrapResult{message: "Error loading profile: " + err.Error()}
		}
		return bootstrapResult{profile: &existing}
	default:
		log.WithError(err).Errorln("Could not create profile.")
		return bootstrapResult{message: "Error creating profile: " + err.Error()}
	}
}

func (s *ProfileScreen) SetUsername(username string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.username = username
}

// UpdateProfile writes the full in-memory record keyed on the user id.
func (s *ProfileScreen) UpdateProfile(ctx context.Context) error {
	s.mutex.Lock()
	if s.session == nil {
		s.mutex.Unlock()
		return ErrNoSession
	}
	if s.loading || s.uploading {
		s.mutex.Unlock()
		return ErrBusy
	}
	gen := s.generation
	record := persona.Profile{
		UserId:    s.session.UserId,
		Username:  s.username,
		AvatarUrl: copyString(s.avatarUrl),
		UpdatedAt: s.now().UTC(),
	}
	s.loading = true
	s.message = ""
	s.mutex.Unlock()

	err := s.store.Upsert(ctx, record)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if gen != s.generation {
		return nil
	}
	s.loading = false
	if err != nil {
		s.log.WithError(err).WithField("user_id", record.UserId).Warnln("Could not update profile.")
		s.message = "Error updating profile: " + err.Error()
		return nil
	}
	s.message = MsgProfileUpdated
	return nil
}

// UploadAvatar stores file under a fresh path and points the profile at its
// public URL. A nil file only sets the selection message.
func (s *ProfileScreen) UploadAvatar(ctx context.Context, file *persona.AvatarFile) error {
	s.mutex.Lock()
	if s.session == nil {
		s.mutex.Unlock()
		return ErrNoSession
	}
	if file == nil || file.Content == nil {
		s.message = MsgSelectImage
		s.mutex.Unlock()
		return nil
	}
	if err := file.Validate(); err != nil {
		s.log.WithError(err).WithField("file_name", file.Name).Infoln("Rejected avatar file.")
		s.message = MsgNotAnImage
		s.mutex.Unlock()
		return nil
	}
	if s.uploading {
		s.mutex.Unlock()
		return ErrBusy
	}
	gen := s.generation
	userId := s.session.UserId
	s.uploading = true
	s.message = ""
	s.mutex.Unlock()

	url, err := s.uploadAvatar(ctx, userId, file)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if gen != s.generation {
		return nil
	}
	s.uploading = false
	if err != nil {
		s.log.WithError(err).WithField("user_id", userId).Errorln("Could not upload avatar.")
		s.message = "Error uploading avatar: " + err.Error()
		return nil
	}
	s.avatarUrl = &url
	s.message = MsgAvatarUploaded
	return nil
}

func (s *ProfileScreen) uploadAvatar(ctx context.Context, userId persona.UserId, file *persona.AvatarFile) (string, error) {
	path := persona.AvatarPath(userId, file.Name)
	err := s.blobs.Upload(ctx, path, file.Content, persona.UploadOptions{
		Overwrite:    true,
		CacheControl: avatarCacheControl,
		ContentType:  persona.AvatarContentType(file.Name),
	})
	if err != nil {
		return "", err
	}

	url := s.blobs.PublicURL(path)
	// the uploaded blob stays orphaned when this fails
	if err := s.store.UpdateAvatarUrl(ctx, userId, url); err != nil {
		return "", err
	}
	return url, nil
}

// SignOut asks the provider to end the session; the controller switches
// screens once the change notification arrives.
func (s *ProfileScreen) SignOut(ctx context.Context) error {
	s.mutex.Lock()
	if s.session == nil {
		s.mutex.Unlock()
		return ErrNoSession
	}
	if s.loading || s.uploading {
		s.mutex.Unlock()
		return ErrBusy
	}
	gen := s.generation
	s.mutex.Unlock()

	err := s.provider.SignOut(ctx)
	if err != nil {
		s.mutex.Lock()
		if gen == s.generation {
			s.message = "Error signing out: " + err.Error()
		}
		s.mutex.Unlock()
	}
	return nil
}

func copySession(session *persona.Session) *persona.Session {
	if session == nil {
		return nil
	}
	c := *session
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
