package viz

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	gifDotSize      = 3
	sparkWidth      = 24
)

type TickMsg time.Time

// Model steps a simulation on every tick and renders it.
type Model struct {
	cfg           *config.Config
	opts          []sim.Option
	sim           *sim.Simulation
	spawner       *sim.Spawner
	dt            float64
	canvas        *Canvas
	bodies        []dynamo.Body
	running       bool
	title         string
	energyHistory []float64
	contacts      []float64
	recording     bool
	frames        []*image.Paletted
	gifPath       string
	showHelp      bool
	log           *slog.Logger
	err           error
}

// NewModel builds the viewer for cfg. Options are applied to every
// simulation the viewer creates, including after a reset.
func NewModel(cfg *config.Config, title string, logger *slog.Logger, opts ...sim.Option) (Model, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := Model{
		cfg:           cfg,
		opts:          append([]sim.Option{sim.WithLogger(logger)}, opts...),
		dt:            cfg.Run.Dt(),
		canvas:        NewCanvas(width, height),
		running:       true,
		title:         title,
		energyHistory: make([]float64, 0, historyCapacity),
		gifPath:       "ballpit.gif",
		log:           logger,
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Duration(m.dt*float64(time.Second)), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.recording {
				m.saveGIF()
			}
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			if !m.running {
				m.step()
			}
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.spawnAt(msg.X, msg.Y)
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) reset() error {
	s, err := sim.New(m.cfg.Sim, m.opts...)
	if err != nil {
		return err
	}
	m.sim = s
	m.spawner = sim.NewSpawner(m.cfg.Spawn)
	m.energyHistory = m.energyHistory[:0]
	m.contacts = m.contacts[:0]
	m.bodies = m.bodies[:0]
	m.err = nil
	m.draw()
	return nil
}

// step advances the simulation by one frame.
func (m *Model) step() {
	if err := m.spawner.Tick(m.sim); err != nil {
		m.err = err
		m.log.Warn("spawn failed", "err", err)
	}
	m.sim.Step(m.dt)

	m.energyHistory = append(m.energyHistory, m.sim.Stats().KineticEnergy)
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
	m.contacts = append(m.contacts, float64(m.sim.Stats().Contacts))
	if len(m.contacts) > sparkWidth {
		m.contacts = m.contacts[1:]
	}

	m.draw()
	if m.recording {
		m.frames = append(m.frames, Rasterize(m.canvas, gifDotSize))
	}
}

// spawnAt drops a ball under the terminal cell (col, row) of a mouse click.
func (m *Model) spawnAt(col, row int) {
	// canvasStyle pads by one row and two columns.
	col -= 2
	row -= 1
	if col < 0 || row < 0 || col >= m.canvas.Width || row >= m.canvas.Height {
		return
	}

	arena := m.cfg.Sim.Arena
	x := (float64(col) + 0.5) / float64(m.canvas.Width) * arena.Width
	y := (float64(row) + 0.5) / float64(m.canvas.Height) * arena.Height
	r := min(m.cfg.Spawn.Radius, m.cfg.Sim.MaxRadius)
	if _, err := m.sim.Spawn(x, y, r, m.cfg.Spawn.Mass, m.cfg.Spawn.Restitution); err != nil {
		m.err = err
		return
	}
	m.draw()
}

// project maps arena coordinates to canvas dots.
func (m *Model) project(p dynamo.Vec2) (float64, float64) {
	arena := m.cfg.Sim.Arena
	return p.X / arena.Width * float64(m.canvas.DotsX()-1),
		p.Y / arena.Height * float64(m.canvas.DotsY()-1)
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.canvas.DrawRect(0, 0, m.canvas.DotsX()-1, m.canvas.DotsY()-1)

	m.bodies = m.sim.SnapshotInto(m.bodies[:0])
	sx := float64(m.canvas.DotsX()-1) / m.cfg.Sim.Arena.Width
	sy := float64(m.canvas.DotsY()-1) / m.cfg.Sim.Arena.Height
	for _, b := range m.bodies {
		cx, cy := m.project(b.Position)
		m.canvas.DrawEllipse(cx, cy, b.Radius*sx, b.Radius*sy)
	}
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		m.err = err
		return
	}
	defer f.Close()

	delay := max(int(m.dt*100), 1)
	if err := WriteGIF(f, m.frames, delay); err != nil {
		m.err = err
		return
	}
	m.log.Info("recording saved", "path", m.gifPath, "frames", len(m.frames))
}

// View renders the TUI interface.
func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())
	stats := m.sim.Stats()

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	switch {
	case m.recording:
		s.WriteString(StatusRecording.Render("● REC") + "\n\n")
	case m.running:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Frame", fmt.Sprintf("%d", m.sim.Frame()))
	row("Time", fmt.Sprintf("%.2fs", m.sim.Time()))
	row("Balls", fmt.Sprintf("%d", m.sim.Len()))
	row("Contacts", fmt.Sprintf("%d", stats.Contacts))
	s.WriteString(labelStyle.Render("") + SparklineChart(m.contacts, sparkWidth) + "\n")
	row("Wall hits", fmt.Sprintf("%d", stats.WallHits))
	row("Overlap", fmt.Sprintf("%.3f", stats.MaxPenetration))
	row("Substeps", fmt.Sprintf("%d", m.cfg.Sim.Substeps))

	if limit := m.cfg.Spawn.Limit; limit > 0 {
		pct := float64(m.spawner.Spawned()) / float64(limit)
		s.WriteString("\n" + labelStyle.Render("Spawned") + ProgressBar(pct, 20) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + StatusRecording.UnsetBlink().Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause S:Step R:Reset\nG:Record ?:Help Q:Quit"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  S        - Step one frame (paused)  ║
║  R        - Reset simulation         ║
║  Click    - Spawn a ball             ║
║  G        - Toggle GIF recording     ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
