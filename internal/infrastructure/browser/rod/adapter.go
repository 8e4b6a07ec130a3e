package rod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

const (
	// LabelAttribute carries an element's click label.
	LabelAttribute = "gpt-link-label"
	// PassAttribute carries the annotation pass that wrote the label.
	PassAttribute = "data-crawl-pass"
	// IndexAttribute ties a live candidate to its snapshot as "<query>:<index>".
	IndexAttribute = "data-crawl-idx"
	// outlineAttribute keeps the page's own inline outline while highlighted.
	outlineAttribute = "data-crawl-outline"

	// InteractiveSelector matches every annotation candidate.
	InteractiveSelector = `a, button, input, textarea, [role=button], [role=treeitem], ` +
		`[role=link], [role=menuitem], [role=tab], [role=checkbox], [role=option]`

	defaultWidth       = 1200
	defaultHeight      = 1200
	defaultScale       = 1.75
	defaultTimeout     = 30 * time.Second
	defaultJPEGQuality = 100
)

var ErrClosed = errors.New("browser is closed")

var _ output.PagePort = (*PageAdapter)(nil)

type PageAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	cfg      BrowserConfig
	logger   output.LoggerPort
	closed   bool

	queries uint64
	// afterSnapshot runs between the snapshot and the element query.
	afterSnapshot func(page *rod.Page)
}

type BrowserConfig struct {
	Headless  bool
	Stealth   bool
	NoSandbox bool

	Width  int
	Height int
	Scale  float64

	// Timeout bounds every CDP call that has no caller deadline of its own.
	Timeout time.Duration

	JPEGQuality int
	// MaxWidth downscales captures wider than this. Zero keeps the native size.
	MaxWidth int
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:    true,
		Stealth:     true,
		Width:       defaultWidth,
		Height:      defaultHeight,
		Scale:       defaultScale,
		Timeout:     defaultTimeout,
		JPEGQuality: defaultJPEGQuality,
	}
}

func (c *BrowserConfig) normalize() {
	if c.Width <= 0 {
		c.Width = defaultWidth
	}
	if c.Height <= 0 {
		c.Height = defaultHeight
	}
	if c.Scale <= 0 {
		c.Scale = defaultScale
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = defaultJPEGQuality
	}
}

func NewPageAdapter(ctx context.Context, cfg BrowserConfig, logger output.LoggerPort) (*PageAdapter, error) {
	cfg.normalize()
	if ctx == nil {
		ctx = context.Background()
	}

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage")

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.Width,
		Height:            cfg.Height,
		DeviceScaleFactor: cfg.Scale,
	})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	logger = logger.WithField("component", "browser")
	logger.Info("Browser launched",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"viewport", fmt.Sprintf("%dx%d@%.2f", cfg.Width, cfg.Height, cfg.Scale),
	)

	return &PageAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// IsReady reports whether the adapter can still serve calls.
func (b *PageAdapter) IsReady() bool {
	return !b.closed && b.page != nil
}

// scoped returns the page bound to ctx, with the configured timeout when ctx
// carries no deadline of its own.
func (b *PageAdapter) scoped(ctx context.Context) (*rod.Page, context.CancelFunc, error) {
	if !b.IsReady() {
		return nil, nil, ErrClosed
	}
	if _, ok := ctx.Deadline(); ok {
		return b.page.Context(ctx), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	return b.page.Context(ctx), cancel, nil
}

func (b *PageAdapter) Navigate(ctx context.Context, url string) error {
	page, cancel, err := b.scoped(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (b *PageAdapter) WaitLoad(ctx context.Context) error {
	if !b.IsReady() {
		return ErrClosed
	}
	return b.page.Context(ctx).WaitLoad()
}

const clearAnnotationsJS = `(label, pass, saved) => {
	for (const el of document.querySelectorAll('[' + label + '], [' + saved + ']')) {
		el.removeAttribute(label);
		el.removeAttribute(pass);
		if (el.hasAttribute(saved)) {
			el.style.outline = el.getAttribute(saved);
			el.removeAttribute(saved);
		}
	}
}`

func (b *PageAdapter) ClearAnnotations(ctx context.Context) error {
	page, cancel, err := b.scoped(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := page.Eval(clearAnnotationsJS, LabelAttribute, PassAttribute, outlineAttribute); err != nil {
		return fmt.Errorf("clear annotations: %w", err)
	}
	return nil
}

// snapshotJS reads layout and computed style for every candidate in document
// order, in one round trip, and tags each candidate with its snapshot index.
const snapshotJS = `(selector, attr, token) => {
	for (const el of document.querySelectorAll('[' + attr + ']')) {
		el.removeAttribute(attr);
	}
	const pick = (s) => ({
		width: s.width, height: s.height, opacity: s.opacity,
		display: s.display, visibility: s.visibility,
	});
	const out = [];
	for (const el of document.querySelectorAll(selector)) {
		el.setAttribute(attr, token + ':' + out.length);
		const r = el.getBoundingClientRect();
		const ancestors = [];
		for (let p = el.parentElement; p; p = p.parentElement) {
			ancestors.push(pick(window.getComputedStyle(p)));
		}
		out.push({
			tag: el.tagName.toLowerCase(),
			text: el.textContent || '',
			box: { x: r.left, y: r.top, width: r.width, height: r.height },
			style: pick(window.getComputedStyle(el)),
			ancestors: ancestors,
		});
	}
	return JSON.stringify(out);
}`

type styleJSON struct {
	Width      string `json:"width"`
	Height     string `json:"height"`
	Opacity    string `json:"opacity"`
	Display    string `json:"display"`
	Visibility string `json:"visibility"`
}

func (s styleJSON) entity() entity.ComputedStyle {
	return entity.ComputedStyle{
		Width:      s.Width,
		Height:     s.Height,
		Opacity:    s.Opacity,
		Display:    s.Display,
		Visibility: s.Visibility,
	}
}

type snapshotJSON struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
	Box  struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"box"`
	Style     styleJSON   `json:"style"`
	Ancestors []styleJSON `json:"ancestors"`
}

func (s snapshotJSON) entity() *entity.ElementSnapshot {
	ancestors := make([]entity.ComputedStyle, 0, len(s.Ancestors))
	for _, a := range s.Ancestors {
		ancestors = append(ancestors, a.entity())
	}
	return &entity.ElementSnapshot{
		Tag:       s.Tag,
		Text:      s.Text,
		Box:       entity.Rect{X: s.Box.X, Y: s.Box.Y, Width: s.Box.Width, Height: s.Box.Height},
		Style:     s.Style.entity(),
		Ancestors: ancestors,
	}
}

func (b *PageAdapter) QueryInteractive(ctx context.Context) ([]output.ElementHandle, error) {
	page, cancel, err := b.scoped(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	b.queries++
	token := strconv.FormatUint(b.queries, 10)

	start := time.Now()
	res, err := page.Eval(snapshotJS, InteractiveSelector, IndexAttribute, token)
	if err != nil {
		return nil, fmt.Errorf("snapshot candidates: %w", err)
	}

	var snaps []snapshotJSON
	if err := json.Unmarshal([]byte(res.Value.Str()), &snaps); err != nil {
		return nil, fmt.Errorf("decode candidate snapshots: %w", err)
	}

	if b.afterSnapshot != nil {
		b.afterSnapshot(page)
	}

	elements, err := page.Elements("[" + IndexAttribute + "]")
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	// Elements are paired with snapshots by the tag written in the same pass,
	// never by position: the document may change between the two calls.
	handles := make([]output.ElementHandle, 0, len(elements))
	seen := make(map[int]bool, len(elements))
	for _, el := range elements {
		idx, ok := snapshotIndex(el, token)
		if !ok || idx >= len(snaps) || seen[idx] {
			continue
		}
		seen[idx] = true
		handles = append(handles, &elementHandle{
			el:   el,
			snap: snaps[idx].entity(),
		})
	}

	if len(handles) != len(snaps) {
		b.logger.Warn("Candidate set changed during snapshot",
			"snapshots", len(snaps), "paired", len(handles))
	}

	b.logger.Debug("Queried candidates", "count", len(handles), "took", time.Since(start))
	return handles, nil
}

// snapshotIndex reads the snapshot index tagged on el by the query token.
func snapshotIndex(el *rod.Element, token string) (int, bool) {
	v, err := el.Attribute(IndexAttribute)
	if err != nil || v == nil {
		return 0, false
	}
	return parseIndexTag(*v, token)
}

func parseIndexTag(tag, token string) (int, bool) {
	query, idx, ok := strings.Cut(tag, ":")
	if !ok || query != token {
		return 0, false
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (b *PageAdapter) QueryAnnotated(ctx context.Context) ([]output.ElementHandle, error) {
	page, cancel, err := b.scoped(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	elements, err := page.Elements("[" + LabelAttribute + "]")
	if err != nil {
		return nil, fmt.Errorf("query annotated: %w", err)
	}

	handles := make([]output.ElementHandle, 0, len(elements))
	for _, el := range elements {
		handles = append(handles, &elementHandle{el: el})
	}
	return handles, nil
}

func (b *PageAdapter) Viewport(ctx context.Context) (entity.Viewport, error) {
	page, cancel, err := b.scoped(ctx)
	if err != nil {
		return entity.Viewport{}, err
	}
	defer cancel()

	res, err := page.Eval(`() => ({ width: window.innerWidth, height: window.innerHeight })`)
	if err != nil {
		return entity.Viewport{}, fmt.Errorf("read viewport: %w", err)
	}
	return entity.Viewport{
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

func (b *PageAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	page, cancel, err := b.scoped(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(b.cfg.JPEGQuality),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if b.cfg.MaxWidth > 0 && img.Bounds().Dx() > b.cfg.MaxWidth {
		img = imaging.Resize(img, b.cfg.MaxWidth, 0, imaging.Lanczos)
		buf := new(bytes.Buffer)
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(b.cfg.JPEGQuality)); err != nil {
			return nil, fmt.Errorf("jpeg encode failed: %w", err)
		}
		data = buf.Bytes()
	}

	return &entity.Screenshot{
		Data:   data,
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (b *PageAdapter) CurrentURL() string {
	if !b.IsReady() {
		return ""
	}
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *PageAdapter) Close() {
	if b.closed {
		return
	}
	b.closed = true
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	b.logger.Info("Browser closed")
}

type elementHandle struct {
	el   *rod.Element
	snap *entity.ElementSnapshot
}

var _ output.ElementHandle = (*elementHandle)(nil)

func (h *elementHandle) Snapshot() *entity.ElementSnapshot {
	return h.snap
}

func (h *elementHandle) Annotation(ctx context.Context) (entity.Annotation, bool, error) {
	res, err := h.el.Context(ctx).Eval(`(label, pass) => ({
		label: this.getAttribute(label),
		pass: this.getAttribute(pass),
	})`, LabelAttribute, PassAttribute)
	if err != nil {
		return entity.Annotation{}, false, fmt.Errorf("read annotation: %w", err)
	}

	label := res.Value.Get("label")
	if label.Nil() {
		return entity.Annotation{}, false, nil
	}

	var pass uint64
	if raw := res.Value.Get("pass"); !raw.Nil() {
		pass, _ = strconv.ParseUint(raw.Str(), 10, 64)
	}
	return entity.Annotation{Label: label.Str(), Pass: pass}, true, nil
}

func (h *elementHandle) Annotate(ctx context.Context, a entity.Annotation) error {
	_, err := h.el.Context(ctx).Eval(`(label, pass, value, id) => {
		this.setAttribute(label, value);
		this.setAttribute(pass, id);
	}`, LabelAttribute, PassAttribute, a.Label, strconv.FormatUint(a.Pass, 10))
	if err != nil {
		return fmt.Errorf("write annotation: %w", err)
	}
	return nil
}

// Highlight outlines the element so it stands out in the screenshot without
// shifting layout. The previous inline outline is kept for ClearAnnotations.
func (h *elementHandle) Highlight(ctx context.Context) error {
	_, err := h.el.Context(ctx).Eval(`(saved) => {
		if (!this.hasAttribute(saved)) {
			this.setAttribute(saved, this.style.outline);
		}
		this.style.outline = '1px solid red';
	}`, outlineAttribute)
	if err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	return nil
}

func (h *elementHandle) Click(ctx context.Context) error {
	if err := h.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}
