package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/bkaraca/dinle/internal/phonetic"
	"github.com/bkaraca/dinle/pkg/provider/apps"
	"github.com/bkaraca/dinle/pkg/provider/chat"
	"github.com/bkaraca/dinle/pkg/provider/news"
	"github.com/bkaraca/dinle/pkg/provider/weather"
)

// BuiltinConfig wires the collaborators the built-in command set needs.
// Transcript is the running conversation that chat turns build on. The
// session's history satisfies it.
type Transcript interface {
	// Messages returns a snapshot of the conversation so far.
	Messages() []chat.Message

	// Append records one message at the end of the conversation.
	Append(role, content string)
}

type BuiltinConfig struct {
	// Weather serves the "hava durumu" command. May be nil; the command then
	// answers that the service is unconfigured.
	Weather weather.Provider

	// News serves "haberler" and "haber ara". May be nil.
	News news.Provider

	// Chat serves "sohbet" and classifies launcher targets the phonetic
	// matcher cannot place. Required.
	Chat chat.Provider

	// Apps launches applications and plays music. May be nil.
	Apps apps.Provider

	// History is the running conversation the chat turns read and extend.
	// May be nil when no history is kept.
	History Transcript

	// DefaultCity is used when a weather utterance names no city.
	// Defaults to Istanbul.
	DefaultCity string
}

// Builtins implements the stock Turkish command set.
type Builtins struct {
	weather weather.Provider
	news    news.Provider
	chat    chat.Provider
	apps    apps.Provider
	history Transcript
	matcher *phonetic.Matcher
	city    string

	// Seams for tests and platform differences.
	openURL  func(ctx context.Context, url string) error
	shutdown func(ctx context.Context, restart bool) error
	now      func() time.Time
}

// NewBuiltins returns the built-in command set over cfg's collaborators.
func NewBuiltins(cfg BuiltinConfig) *Builtins {
	city := cfg.DefaultCity
	if city == "" {
		city = "Istanbul"
	}
	return &Builtins{
		weather:  cfg.Weather,
		news:     cfg.News,
		chat:     cfg.Chat,
		apps:     cfg.Apps,
		history:  cfg.History,
		matcher:  phonetic.New(),
		city:     city,
		openURL:  openBrowser,
		shutdown: systemShutdown,
		now:      time.Now,
	}
}

// RegisterAll registers the built-in commands and spoken aliases on reg in
// their fixed priority order.
func (b *Builtins) RegisterAll(reg *Registry) error {
	specs := []Spec{
		{Name: "google", Keywords: []string{"google"}, Handler: Async(b.openGoogle), Description: "Google'ı tarayıcıda açar"},
		{Name: "youtube", Keywords: []string{"youtube"}, Handler: Async(b.openYouTube), Description: "YouTube'u tarayıcıda açar"},
		{Name: "hava durumu", Keywords: []string{"hava durumu"}, Handler: Sync(b.weatherReport), Description: "Bir şehir için güncel hava durumunu söyler"},
		{Name: "saat", Keywords: []string{"saat"}, Handler: Async(b.currentTime), Description: "Şu anki saati söyler"},
		{Name: "kapat", Keywords: []string{"kapat"}, Handler: Async(b.shutdownComputer), Description: "Bilgisayarı kapatır"},
		{Name: "yeniden başlat", Keywords: []string{"yeniden başlat"}, Handler: Async(b.restartComputer), Description: "Bilgisayarı yeniden başlatır"},
		{Name: "hesap makinesi", Keywords: []string{"hesap makinesi"}, Handler: Async(b.openCalculator), Description: "Hesap makinesini açar"},
		{Name: "haberler", Keywords: []string{"haberler"}, Handler: Sync(b.topNews), Description: "Güncel haber başlıklarını okur"},
		{Name: "haber ara", Keywords: []string{"haber ara"}, Handler: Sync(b.searchNews), Description: "Belirtilen konuda haber arar"},
		{Name: "sohbet", Keywords: []string{"sohbet"}, Handler: Sync(b.chatTurn), Description: "Yapay zeka ile sohbet eder"},
		{Name: "uygulama aç", Keywords: []string{"uygulama aç", "uygulamayı aç"}, Handler: Sync(b.launchApp), Description: "Söylenen uygulamayı başlatır"},
		{Name: "müzik çal", Keywords: []string{"müzik çal", "şarkı çal"}, Handler: Sync(b.playMusic), Description: "Müzik klasöründen bir parça çalar"},
		{Name: "müziği durdur", Keywords: []string{"müziği durdur", "müzik durdur"}, Handler: Async(b.stopMusic), Description: "Çalan müziği durdurur"},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	for _, a := range builtinAliases {
		reg.Alias(a.phrase, a.target)
	}
	return nil
}

// builtinAliases is the spoken alias vocabulary, in priority order. The
// "yeniden başlat" phrase targets a command name that was never registered;
// the identical keyword always wins first, so the alias is unreachable and
// kept only for vocabulary completeness.
var builtinAliases = []struct{ phrase, target string }{
	{"haber ver", "haberler"},
	{"haberleri göster", "haberler"},
	{"havayı söyle", "hava durumu"},
	{"saat kaç", "saat"},
	{"saati söyle", "saat"},
	{"bilgisayarı kapat", "kapat"},
	{"sistemi kapat", "kapat"},
	{"yeniden başlat", "restart"},
	{"hesap makinesini aç", "hesap makinesi"},
	{"google'ı aç", "google"},
	{"youtube'u aç", "youtube"},
}

// BuiltinAliases returns the stock alias vocabulary as a phrase-to-command
// map. Configuration reloads merge user aliases over this map before calling
// [Registry.ReplaceAliases], so a reload never loses the built-in phrases.
func BuiltinAliases() map[string]string {
	out := make(map[string]string, len(builtinAliases))
	for _, a := range builtinAliases {
		out[a.phrase] = a.target
	}
	return out
}

func (b *Builtins) openGoogle(ctx context.Context, _ Request) (string, error) {
	if err := b.openURL(ctx, "https://www.google.com"); err != nil {
		slog.Error("browser launch failed", "url", "https://www.google.com", "err", err)
		return "Google açılırken bir hata oluştu", nil
	}
	return "Google açılıyor", nil
}

func (b *Builtins) openYouTube(ctx context.Context, _ Request) (string, error) {
	if err := b.openURL(ctx, "https://www.youtube.com"); err != nil {
		slog.Error("browser launch failed", "url", "https://www.youtube.com", "err", err)
		return "YouTube açılırken bir hata oluştu", nil
	}
	return "YouTube açılıyor", nil
}

// weatherReport answers "hava durumu <şehir>". The city is the word right
// after the first "durumu"; with no city spoken, the configured default is
// used.
func (b *Builtins) weatherReport(ctx context.Context, req Request) (string, error) {
	if b.weather == nil {
		return "Üzgünüm, hava durumu servisi yapılandırılmamış.", nil
	}
	city := b.city
	words := strings.Fields(req.Utterance)
	for i, w := range words {
		if w != "durumu" {
			continue
		}
		if i+1 < len(words) {
			city = words[i+1]
		}
		break
	}

	rep, err := b.weather.Current(ctx, city)
	if err != nil || rep == nil {
		slog.Error("weather lookup failed", "city", city, "err", err)
		return "Üzgünüm, hava durumu bilgisi alınamadı.", nil
	}
	return renderWeather(rep), nil
}

func (b *Builtins) currentTime(_ context.Context, _ Request) (string, error) {
	return "Şu anki saat: " + b.now().Format("15:04:05"), nil
}

func (b *Builtins) shutdownComputer(ctx context.Context, _ Request) (string, error) {
	if err := b.shutdown(ctx, false); err != nil {
		slog.Error("shutdown failed", "err", err)
		return "Bilgisayar kapatılırken bir hata oluştu", nil
	}
	return "Bilgisayar kapatılıyor", nil
}

func (b *Builtins) restartComputer(ctx context.Context, _ Request) (string, error) {
	if err := b.shutdown(ctx, true); err != nil {
		slog.Error("restart failed", "err", err)
		return "Bilgisayar yeniden başlatılırken bir hata oluştu", nil
	}
	return "Bilgisayar yeniden başlatılıyor", nil
}

func (b *Builtins) openCalculator(ctx context.Context, _ Request) (string, error) {
	if b.apps == nil {
		return "Üzgünüm, uygulama başlatma yapılandırılmamış.", nil
	}
	if err := b.apps.Launch(ctx, "calc"); err != nil {
		slog.Error("calculator launch failed", "err", err)
		return "Hesap makinesi açılırken bir hata oluştu", nil
	}
	return "Hesap makinesi açılıyor", nil
}

// topNews answers "haberler", optionally scoped to the first recognized
// Turkish category word in the utterance ("teknoloji haberler").
func (b *Builtins) topNews(ctx context.Context, req Request) (string, error) {
	if b.news == nil {
		return "Üzgünüm, haber servisi yapılandırılmamış.", nil
	}
	var category string
	for _, word := range strings.Fields(req.Utterance) {
		if c, ok := news.CategoryFromTurkish(word); ok {
			category = c
			break
		}
	}

	articles, err := b.news.TopHeadlines(ctx, category)
	if err != nil {
		slog.Error("headline fetch failed", "category", category, "err", err)
		return "Üzgünüm, hiç haber bulunamadı.", nil
	}
	return renderArticles(category, articles, false), nil
}

func (b *Builtins) searchNews(ctx context.Context, req Request) (string, error) {
	if b.news == nil {
		return "Üzgünüm, haber servisi yapılandırılmamış.", nil
	}
	query := req.Args
	if query == "" {
		return "Arama yapmak için bir konu belirtmelisiniz", nil
	}

	articles, err := b.news.Search(ctx, query)
	if err != nil {
		slog.Error("news search failed", "query", query, "err", err)
		return "Üzgünüm, hiç haber bulunamadı.", nil
	}
	return renderArticles(news.CategorySearch, articles, true), nil
}

func (b *Builtins) chatTurn(ctx context.Context, req Request) (string, error) {
	var history []chat.Message
	if b.history != nil {
		history = b.history.Messages()
	}

	resp, err := b.chat.Respond(ctx, history, req.Utterance)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp) == "" {
		return "Üzgünüm, şu anda cevap veremiyorum", nil
	}
	// Record the exchange only when it produced a speakable answer, so a
	// failed turn does not skew the context of the next one.
	if b.history != nil {
		b.history.Append(chat.RoleUser, req.Utterance)
		b.history.Append(chat.RoleAssistant, resp)
	}
	return resp, nil
}

// launchApp answers "uygulama aç <ad>". The spoken name goes through the
// phonetic matcher first; only when that finds nothing is the chat model
// asked to classify the name against the candidate list.
func (b *Builtins) launchApp(ctx context.Context, req Request) (string, error) {
	if b.apps == nil {
		return "Üzgünüm, uygulama başlatma yapılandırılmamış.", nil
	}
	target := req.Args
	if target == "" {
		return "Hangi uygulamayı açmak istediğinizi anlayamadım", nil
	}

	candidates := b.apps.Candidates()
	name, _, ok := b.matcher.Match(target, candidates)
	if !ok {
		var err error
		name, err = b.chat.Classify(ctx, target, candidates)
		if err != nil {
			slog.Warn("launcher classification failed", "target", target, "err", err)
			return "Hangi uygulamayı açmak istediğinizi anlayamadım", nil
		}
		if name == chat.Unknown {
			return "Hangi uygulamayı açmak istediğinizi anlayamadım", nil
		}
	}
	return b.launch(ctx, name)
}

// launch starts name and phrases the outcome.
func (b *Builtins) launch(ctx context.Context, name string) (string, error) {
	err := b.apps.Launch(ctx, name)
	switch {
	case err == nil:
		return capitalizeTurkish(name) + " açılıyor", nil
	case errors.Is(err, apps.ErrNotInstalled):
		return "Üzgünüm, " + name + " bu bilgisayarda yüklü değil.", nil
	case errors.Is(err, apps.ErrUnknownApp):
		return "Hangi uygulamayı açmak istediğinizi anlayamadım", nil
	default:
		return "", err
	}
}

func (b *Builtins) playMusic(ctx context.Context, req Request) (string, error) {
	if b.apps == nil {
		return "Üzgünüm, müzik çalma yapılandırılmamış.", nil
	}
	title, err := b.apps.PlayMusic(ctx, req.Args)
	switch {
	case err == nil:
		return "Müzik çalınıyor: " + title, nil
	case errors.Is(err, apps.ErrNoTrack):
		return "Üzgünüm, aradığınız müzik bulunamadı.", nil
	default:
		return "", err
	}
}

func (b *Builtins) stopMusic(ctx context.Context, _ Request) (string, error) {
	if b.apps == nil {
		return "Üzgünüm, müzik çalma yapılandırılmamış.", nil
	}
	if err := b.apps.StopMusic(ctx); err != nil {
		return "", err
	}
	return "Müzik durduruldu", nil
}

// openBrowser opens url in the default browser via the first available
// opener. The opener process is left running detached.
func openBrowser(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var lastErr error
	for _, name := range []string{"xdg-open", "open", "sensible-browser"} {
		path, err := exec.LookPath(name)
		if err != nil {
			lastErr = err
			continue
		}
		cmd := exec.Command(path, url)
		if err := cmd.Start(); err != nil {
			lastErr = err
			continue
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
	if lastErr == nil {
		lastErr = exec.ErrNotFound
	}
	return fmt.Errorf("open %s: %w", url, lastErr)
}

// systemShutdown asks the OS to power off or reboot after a short grace
// period, leaving time for the spoken confirmation to play.
func systemShutdown(ctx context.Context, restart bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args := []string{"-h", "+1"}
	if restart {
		args = []string{"-r", "+1"}
	}
	path, err := exec.LookPath("shutdown")
	if err != nil {
		return err
	}
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("shutdown: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
