// Package mainwindow provides the main viewer window: the photograph with
// its detected mesh on the left and the unwrapped texture on the right.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"facewarp/internal/app"
	"facewarp/internal/config"
	"facewarp/internal/landmark"
	"facewarp/internal/version"
	"facewarp/internal/view"
	"facewarp/pkg/colorutil"
	"facewarp/ui/canvas"
	"facewarp/ui/prefs"
)

const watchInterval = time.Second

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session
	prefs   *prefs.Prefs
	log     *zap.Logger

	source    *canvas.PanZoomCanvas
	texture   *canvas.PanZoomCanvas
	split     *container.Split
	statusBar *widget.Label
	viewLabel *widget.Label

	detectBtn   *widget.Button
	generateBtn *widget.Button
	saveBtn     *widget.Button
	recentMenu  *fyne.Menu

	mu      sync.Mutex
	cancel  context.CancelFunc
	watcher *app.FileWatcher
}

// New creates a new main window.
func New(fyneApp fyne.App, session *app.Session, p *prefs.Prefs, log *zap.Logger) *MainWindow {
	win := fyneApp.NewWindow("Facewarp")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		session: session,
		prefs:   p,
		log:     log,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupWatcher()
	mw.SetOnClosed(mw.shutdown)

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	vc := mw.session.Config().Viewer
	viewport := fyne.NewSize(float32(vc.ViewportWidth), float32(vc.ViewportHeight))

	mw.source = canvas.NewPanZoomCanvas(viewport)
	mw.texture = canvas.NewPanZoomCanvas(viewport)
	mw.texture.SetImage(mw.session.TexturePreview(), true)

	settings := mw.app.Settings()
	mw.source.SetBackground(settings.Theme().Color(theme.ColorNameBackground, settings.ThemeVariant()))
	mw.texture.SetBackground(colorutil.Black)

	mw.source.OnHover(func(index int, ok bool) {
		if ok {
			mw.updateStatus(mw.describeKeypoint(index))
		}
	})
	mw.viewLabel = widget.NewLabel("")
	showView := func(s view.Snapshot) {
		mw.viewLabel.SetText(fmt.Sprintf("%.0f%%", s.Scale*100))
	}
	mw.source.OnViewChange(showView)
	mw.texture.OnViewChange(showView)

	mw.statusBar = widget.NewLabel("Open a photograph to begin")

	mw.split = container.NewHSplit(
		mw.pane("Photograph", mw.source),
		mw.pane("Texture", mw.texture),
	)
	mw.split.SetOffset(mw.prefs.FloatWithFallback(prefs.KeySplitOffset, 0.5))

	content := container.NewBorder(
		mw.createToolbar(),
		container.NewPadded(container.NewBorder(nil, nil, nil, mw.viewLabel, mw.statusBar)),
		nil,
		nil,
		mw.split,
	)

	mw.SetContent(content)
	mw.updateActions()
}

// pane wraps a canvas with a title and its zoom controls.
func (mw *MainWindow) pane(title string, pc *canvas.PanZoomCanvas) fyne.CanvasObject {
	header := container.NewHBox(
		widget.NewLabelWithStyle(title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewButton("-", pc.ZoomOut),
		widget.NewButton("+", pc.ZoomIn),
		widget.NewButton("Fit", pc.FitToViewport),
		widget.NewButton("1:1", pc.ResetView),
	)
	return container.NewBorder(header, nil, nil, nil, pc)
}

// createToolbar creates the workflow buttons.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	openBtn := widget.NewButton("Open...", mw.onOpenImage)
	mw.detectBtn = widget.NewButton("Detect", mw.onDetect)
	mw.generateBtn = widget.NewButton("Generate", mw.onGenerate)
	mw.saveBtn = widget.NewButton("Save Texture...", mw.onSaveTexture)

	oc := mw.session.Config().Overlay
	points := widget.NewCheck("Points", nil)
	contours := widget.NewCheck("Contours", nil)
	points.SetChecked(oc.Points)
	contours.SetChecked(oc.Contours)
	toggle := func(bool) {
		mw.session.SetOverlayVisibility(points.Checked, contours.Checked)
		if mw.session.Source() != nil {
			mw.source.SetImage(mw.session.SourcePreview(), false)
		}
	}
	points.OnChanged = toggle
	contours.OnChanged = toggle

	return container.NewHBox(openBtn, mw.detectBtn, mw.generateBtn, mw.saveBtn,
		widget.NewSeparator(), points, contours)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.recentMenu = fyne.NewMenu("Open Recent")
	openRecent := fyne.NewMenuItem("Open Recent", nil)
	openRecent.ChildMenu = mw.recentMenu
	mw.refreshRecent()

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		openRecent,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Texture...", mw.onSaveTexture),
		fyne.NewMenuItem("Export Landmarks...", mw.onExportLandmarks),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() { mw.source.ZoomIn(); mw.texture.ZoomIn() }),
		fyne.NewMenuItem("Zoom Out", func() { mw.source.ZoomOut(); mw.texture.ZoomOut() }),
		fyne.NewMenuItem("Fit to Viewport", func() { mw.source.FitToViewport(); mw.texture.FitToViewport() }),
		fyne.NewMenuItem("Actual Size", func() { mw.source.ResetView(); mw.texture.ResetView() }),
	)

	toolsMenu := fyne.NewMenu("Tools",
		fyne.NewMenuItem("Detect Landmarks", mw.onDetect),
		fyne.NewMenuItem("Generate Texture", mw.onGenerate),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, toolsMenu, helpMenu))
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventImageLoaded, func(data interface{}) {
		mw.source.SetPoints(nil)
		mw.source.SetImage(mw.session.SourcePreview(), true)
		mw.texture.SetImage(mw.session.TexturePreview(), true)
		if src := mw.session.Source(); src != nil {
			mw.SetTitle("Facewarp - " + src.Name())
		}
		mw.updateStatus("Image loaded")
		mw.updateActions()
	})

	mw.session.On(app.EventDetectionStarted, func(data interface{}) {
		mw.updateStatus("Detecting landmarks...")
	})

	mw.session.On(app.EventDetectionComplete, func(data interface{}) {
		res, _ := data.(landmark.Result)
		mw.source.SetImage(mw.session.SourcePreview(), false)
		mw.source.SetPoints(mw.session.MeshKeypoints())
		if res.Empty() {
			mw.updateStatus("No face detected")
		} else {
			mw.updateStatus(fmt.Sprintf("Detected %d face(s)", len(res.Faces)))
		}
		mw.updateActions()
	})

	mw.session.On(app.EventTextureGenerated, func(data interface{}) {
		mw.texture.SetImage(mw.session.TexturePreview(), true)
		mw.updateStatus("Texture generated")
		mw.updateActions()
	})

	mw.session.On(app.EventTextureSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Saved " + path)
		}
	})

	mw.session.On(app.EventError, func(data interface{}) {
		if err, ok := data.(error); ok && !errors.Is(err, context.Canceled) {
			mw.updateStatus("Error: " + err.Error())
		}
	})
}

// setupWatcher re-runs detection when a replayed keypoints file changes.
func (mw *MainWindow) setupWatcher() {
	dc := mw.session.Config().Detector
	if dc.Kind != config.DetectorFile || dc.Keypoints == "" {
		return
	}
	mw.watcher = app.NewFileWatcher(dc.Keypoints, watchInterval)
	mw.watcher.OnChange(func() {
		mw.log.Info("keypoints file changed", zap.String("path", dc.Keypoints))
		if mw.session.Source() != nil {
			mw.onDetect()
		}
	})
	mw.watcher.Start()
}

// LoadImage opens path and starts landmark detection on it.
func (mw *MainWindow) LoadImage(path string) {
	if err := mw.session.LoadImage(path); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.saveLastDir(path)
	mw.prefs.AddRecentImage(path)
	mw.refreshRecent()
	mw.onDetect()
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		mw.LoadImage(reader.URI().Path())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(imageExtensions))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// onDetect runs detection in the background, cancelling any detection
// still in flight.
func (mw *MainWindow) onDetect() {
	ctx, cancel := context.WithCancel(context.Background())
	mw.mu.Lock()
	if mw.cancel != nil {
		mw.cancel()
	}
	mw.cancel = cancel
	mw.mu.Unlock()

	go func() {
		defer cancel()
		if _, err := mw.session.Detect(ctx); err != nil && !errors.Is(err, context.Canceled) {
			mw.log.Warn("detection failed", zap.Error(err))
		}
	}()
}

func (mw *MainWindow) onGenerate() {
	mw.updateStatus("Generating texture...")
	go func() {
		if _, err := mw.session.Generate(); err != nil && !errors.Is(err, context.Canceled) {
			mw.updateStatus("Cannot generate: " + err.Error())
		}
	}()
}

func (mw *MainWindow) onSaveTexture() {
	if mw.session.Texture() == nil {
		dialog.ShowError(app.ErrNoTexture, mw.Window)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		mw.saveLastDir(path)
		if err := mw.session.SaveTexture(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName("texture.png")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportLandmarks() {
	res, detected := mw.session.Result()
	src := mw.session.Source()
	if !detected || src == nil {
		dialog.ShowError(app.ErrNotDetected, mw.Window)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		if err := landmark.WriteJSON(writer, res, src.Width(), src.Height()); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported landmarks to " + writer.URI().Path())
	}, mw.Window)
	fd.SetFileName("landmarks.json")
	fd.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Facewarp",
		fmt.Sprintf("Facewarp v%s\n\n"+
			"Unwraps a face photograph onto a canonical texture layout.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

// describeKeypoint reports a keypoint's position and the photograph's
// color under it.
func (mw *MainWindow) describeKeypoint(index int) string {
	kps := mw.session.MeshKeypoints()
	src := mw.session.Source()
	if index < 0 || index >= len(kps) || src == nil {
		return fmt.Sprintf("Keypoint %d", index)
	}
	p := kps[index]
	return fmt.Sprintf("Keypoint %d  (%.1f, %.1f)  %s", index, p.X, p.Y,
		colorutil.Hex(src.PixelAt(int(p.X), int(p.Y))))
}

// updateActions enables the buttons that can run in the current state.
func (mw *MainWindow) updateActions() {
	res, detected := mw.session.Result()
	setEnabled(mw.detectBtn, mw.session.Source() != nil)
	setEnabled(mw.generateBtn, detected && !res.Empty())
	setEnabled(mw.saveBtn, mw.session.Texture() != nil)
}

func setEnabled(b *widget.Button, on bool) {
	if b == nil {
		return
	}
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

// refreshRecent rebuilds the Open Recent submenu.
func (mw *MainWindow) refreshRecent() {
	var items []*fyne.MenuItem
	for _, path := range mw.prefs.RecentImages() {
		path := path
		if _, err := os.Stat(path); err != nil {
			continue
		}
		items = append(items, fyne.NewMenuItem(filepath.Base(path), func() { mw.LoadImage(path) }))
	}
	mw.recentMenu.Items = items
	mw.recentMenu.Refresh()
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// shutdown stops background work and persists preferences.
func (mw *MainWindow) shutdown() {
	mw.mu.Lock()
	if mw.cancel != nil {
		mw.cancel()
	}
	mw.mu.Unlock()
	if mw.watcher != nil {
		mw.watcher.Stop()
	}
	mw.prefs.SetFloat(prefs.KeySplitOffset, mw.split.Offset)
	if err := mw.prefs.Save(); err != nil {
		mw.log.Warn("failed to save preferences", zap.Error(err))
	}
}
