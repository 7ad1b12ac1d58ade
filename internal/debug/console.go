package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/logger"
	"github.com/Versifine/arena/internal/session"
)

const (
	defaultTickInterval = 16 * time.Millisecond
	defaultMovePulse    = 180 * time.Millisecond
	statusEvery         = 6
	yawStep             = 5.0
)

// Controller is the session surface the console drives.
type Controller interface {
	Submit(in session.Input) bool
	Status() session.Status
}

type moveState struct {
	forward  bool
	backward bool
	left     bool
	right    bool
	yaw      float64
}

type Console struct {
	ctrl         Controller
	out          io.Writer
	log          *slog.Logger
	tickInterval time.Duration
	movePulse    time.Duration

	mu            sync.Mutex
	move          moveState
	charging      bool
	forwardUntil  time.Time
	backwardUntil time.Time
	leftUntil     time.Time
	rightUntil    time.Time
	commandMode   bool
	commandBuf    []rune
	statusWidth   int
}

func NewConsole(ctrl Controller) *Console {
	return &Console{
		ctrl:         ctrl,
		out:          os.Stdout,
		log:          logger.With("debug"),
		tickInterval: defaultTickInterval,
		movePulse:    defaultMovePulse,
	}
}

// Start puts the terminal in raw mode and reads keys until ctx is done.
func (c *Console) Start(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("console is nil")
	}
	if c.ctrl == nil {
		return fmt.Errorf("console controller is nil")
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprint(c.out, "\r\n")
	}()

	fmt.Fprint(c.out, "[debug] console started (W/A/S/D move, J combo, K charge, C connect, V disconnect, :help)\r\n")
	c.renderStatusLine()

	go c.tickLoop(ctx)

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		b, err := reader.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		}
		c.handleKey(reader, b)
	}
}

func (c *Console) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.tick(now)
			n++
			if n%statusEvery == 0 {
				c.renderStatusLine()
			}
		}
	}
}

// tick submits the held movement direction, if any.
func (c *Console) tick(now time.Time) {
	c.mu.Lock()
	c.applyMovementPulseLocked(now)
	dir := moveDir(c.move)
	c.mu.Unlock()
	if dir.IsZero() {
		return
	}
	c.ctrl.Submit(session.Input{Kind: session.InputMove, Dir: dir, Value: 1})
}

func (c *Console) handleKey(reader *bufio.Reader, b byte) {
	if c.isCommandMode() {
		c.handleCommandByte(b)
		return
	}

	switch b {
	case ':':
		c.enterCommandMode()
		return
	case 'w', 'W':
		c.pulseForward()
	case 's', 'S':
		c.pulseBackward()
	case 'a', 'A':
		c.pulseLeft()
	case 'd', 'D':
		c.pulseRight()
	case 'j', 'J':
		c.ctrl.Submit(session.Input{Kind: session.InputCombo})
	case 'k', 'K':
		c.toggleCharge()
	case 'c', 'C':
		c.ctrl.Submit(session.Input{Kind: session.InputConnect})
	case 'v', 'V':
		c.ctrl.Submit(session.Input{Kind: session.InputDisconnect})
	case 'x', 'X':
		c.clearInput()
	case 27: // ESC + arrow sequence
		if reader == nil {
			return
		}
		next, err := reader.ReadByte()
		if err != nil || next != '[' {
			return
		}
		arrow, err := reader.ReadByte()
		if err != nil {
			return
		}
		switch arrow {
		case 'D': // left
			c.adjustYaw(yawStep)
		case 'C': // right
			c.adjustYaw(-yawStep)
		}
	}
	c.renderStatusLine()
}

func (c *Console) enterCommandMode() {
	c.mu.Lock()
	c.commandMode = true
	c.commandBuf = c.commandBuf[:0]
	c.mu.Unlock()
	fmt.Fprint(c.out, "\r\n:")
}

func (c *Console) handleCommandByte(b byte) {
	switch b {
	case 13, 10: // Enter
		c.mu.Lock()
		cmd := strings.TrimSpace(string(c.commandBuf))
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()

		fmt.Fprint(c.out, "\r\n")
		if cmd != "" {
			c.executeCommand(cmd)
		}
		c.renderStatusLine()
		return
	case 27: // ESC cancel command mode
		c.mu.Lock()
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()
		fmt.Fprint(c.out, "\r\n[debug] command cancelled\r\n")
		c.renderStatusLine()
		return
	case 8, 127: // Backspace
		c.mu.Lock()
		if len(c.commandBuf) > 0 {
			c.commandBuf = c.commandBuf[:len(c.commandBuf)-1]
		}
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s ", buf)
		fmt.Fprintf(c.out, "\r:%s", buf)
		return
	default:
		if b < 32 || b > 126 {
			return
		}
		c.mu.Lock()
		c.commandBuf = append(c.commandBuf, rune(b))
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s", buf)
	}
}

func (c *Console) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "help":
		c.printHelp()
	case "state":
		st := c.ctrl.Status()
		fmt.Fprintf(c.out, "[debug] session=%s id=%q connected=%t\r\n", st.State, st.LocalID, st.Connected)
		fmt.Fprintf(c.out, "[debug] pos=(%.1f,%.1f,%.1f) hp=%.1f/%.1f dead=%t phase=%s combo=%d\r\n",
			st.Position.X, st.Position.Y, st.Position.Z,
			st.HP, st.MaxHP, st.Dead, st.Phase, st.Combo,
		)
	case "remotes":
		st := c.ctrl.Status()
		if len(st.Remotes) == 0 {
			fmt.Fprint(c.out, "[debug] no remote players\r\n")
			return
		}
		for _, r := range st.Remotes {
			fmt.Fprintf(c.out, "[debug] %s pos=(%.1f,%.1f,%.1f) hp=%.1f dead=%t\r\n",
				r.ID, r.Position.X, r.Position.Y, r.Position.Z, r.HP, r.Dead)
		}
	case "tp":
		if len(parts) != 4 {
			fmt.Fprint(c.out, "[debug] usage: :tp <x> <y> <z>\r\n")
			return
		}
		x, err1 := strconv.ParseFloat(parts[1], 64)
		y, err2 := strconv.ParseFloat(parts[2], 64)
		z, err3 := strconv.ParseFloat(parts[3], 64)
		at := geom.Vec3{X: x, Y: y, Z: z}
		if err1 != nil || err2 != nil || err3 != nil || !at.IsFinite() {
			fmt.Fprint(c.out, "[debug] invalid tp args\r\n")
			return
		}
		c.ctrl.Submit(session.Input{Kind: session.InputTeleport, Dir: at})
		fmt.Fprintf(c.out, "[debug] local tp set to (%.1f, %.1f, %.1f)\r\n", x, y, z)
	case "hp":
		if len(parts) != 2 {
			fmt.Fprint(c.out, "[debug] usage: :hp <value>\r\n")
			return
		}
		hp, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || !geom.IsFinite(hp) {
			fmt.Fprint(c.out, "[debug] invalid hp\r\n")
			return
		}
		c.ctrl.Submit(session.Input{Kind: session.InputSetHP, Value: hp})
		fmt.Fprintf(c.out, "[debug] local hp set to %.1f\r\n", hp)
	case "connect":
		c.ctrl.Submit(session.Input{Kind: session.InputConnect})
	case "disconnect":
		c.ctrl.Submit(session.Input{Kind: session.InputDisconnect})
	default:
		fmt.Fprintf(c.out, "[debug] unknown command: %s\r\n", parts[0])
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, "[debug] keys:\r\n")
	fmt.Fprint(c.out, "  W/S/A/D: pulse movement (~180ms)\r\n")
	fmt.Fprint(c.out, "  Arrow Left/Right: turn +/-5\r\n")
	fmt.Fprint(c.out, "  J: combo attack\r\n")
	fmt.Fprint(c.out, "  K: hold/release charged attack\r\n")
	fmt.Fprint(c.out, "  C/V: connect/disconnect\r\n")
	fmt.Fprint(c.out, "  X: clear movement\r\n")
	fmt.Fprint(c.out, "  : enter command mode\r\n")
	fmt.Fprint(c.out, "[debug] commands:\r\n")
	fmt.Fprint(c.out, "  :state\r\n")
	fmt.Fprint(c.out, "  :remotes\r\n")
	fmt.Fprint(c.out, "  :tp <x> <y> <z>\r\n")
	fmt.Fprint(c.out, "  :hp <value>\r\n")
	fmt.Fprint(c.out, "  :connect | :disconnect\r\n")
	fmt.Fprint(c.out, "  :help\r\n")
}

func (c *Console) renderStatusLine() {
	c.mu.Lock()
	if c.commandMode {
		c.mu.Unlock()
		return
	}
	move := c.move
	charging := c.charging
	width := c.statusWidth
	c.mu.Unlock()

	st := c.ctrl.Status()
	line := fmt.Sprintf(
		"[%s %s | HP:%.0f/%.0f %s | %s CHG:%s | YAW:%.0f | X:%.0f Y:%.0f Z:%.0f | remotes:%d]",
		st.State,
		idLabel(st.LocalID),
		st.HP,
		st.MaxHP,
		deadLabel(st.Dead),
		st.Phase,
		boolLabel(charging),
		move.yaw,
		st.Position.X,
		st.Position.Y,
		st.Position.Z,
		len(st.Remotes),
	)

	padding := ""
	if width > len(line) {
		padding = strings.Repeat(" ", width-len(line))
	}
	fmt.Fprintf(c.out, "\r%s%s", line, padding)

	c.mu.Lock()
	if len(line) > c.statusWidth {
		c.statusWidth = len(line)
	}
	c.mu.Unlock()
}

func (c *Console) toggleCharge() {
	c.mu.Lock()
	c.charging = !c.charging
	charging := c.charging
	c.mu.Unlock()

	kind := session.InputChargeRelease
	if charging {
		kind = session.InputChargePress
	}
	c.ctrl.Submit(session.Input{Kind: kind})
	c.log.Debug("Charge toggled", "charging", charging)
}

func (c *Console) adjustYaw(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.move.yaw = normalizeYaw(c.move.yaw + delta)
}

func (c *Console) isCommandMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandMode
}

// moveDir turns held keys into a horizontal world direction relative to yaw.
func moveDir(m moveState) geom.Vec3 {
	var forward, strafe float64
	if m.forward {
		forward++
	}
	if m.backward {
		forward--
	}
	if m.left {
		strafe++
	}
	if m.right {
		strafe--
	}
	if forward == 0 && strafe == 0 {
		return geom.Zero
	}
	fwd := geom.ForwardFromYaw(m.yaw)
	left := geom.Vec3{X: -fwd.Y, Y: fwd.X}
	return fwd.Scale(forward).Add(left.Scale(strafe)).SafeNormal()
}

func boolLabel(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func deadLabel(dead bool) string {
	if dead {
		return "DEAD"
	}
	return "alive"
}

func idLabel(id string) string {
	if id == "" {
		return "-"
	}
	return id
}

func normalizeYaw(yaw float64) float64 {
	yaw = math.Mod(yaw, 360)
	if yaw <= -180 {
		yaw += 360
	}
	if yaw > 180 {
		yaw -= 360
	}
	return yaw
}

func (c *Console) pulseForward() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.move.forward = true
	c.forwardUntil = now.Add(c.movePulse)
	c.move.backward = false
	c.backwardUntil = time.Time{}
}

func (c *Console) pulseBackward() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.move.backward = true
	c.backwardUntil = now.Add(c.movePulse)
	c.move.forward = false
	c.forwardUntil = time.Time{}
}

func (c *Console) pulseLeft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.move.left = true
	c.leftUntil = now.Add(c.movePulse)
	c.move.right = false
	c.rightUntil = time.Time{}
}

func (c *Console) pulseRight() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.move.right = true
	c.rightUntil = now.Add(c.movePulse)
	c.move.left = false
	c.leftUntil = time.Time{}
}

func (c *Console) applyMovementPulseLocked(now time.Time) {
	if !c.forwardUntil.IsZero() && !now.Before(c.forwardUntil) {
		c.move.forward = false
		c.forwardUntil = time.Time{}
	}
	if !c.backwardUntil.IsZero() && !now.Before(c.backwardUntil) {
		c.move.backward = false
		c.backwardUntil = time.Time{}
	}
	if !c.leftUntil.IsZero() && !now.Before(c.leftUntil) {
		c.move.left = false
		c.leftUntil = time.Time{}
	}
	if !c.rightUntil.IsZero() && !now.Before(c.rightUntil) {
		c.move.right = false
		c.rightUntil = time.Time{}
	}
}

func (c *Console) clearInput() {
	c.mu.Lock()
	yaw := c.move.yaw
	c.move = moveState{yaw: yaw}
	c.forwardUntil = time.Time{}
	c.backwardUntil = time.Time{}
	c.leftUntil = time.Time{}
	c.rightUntil = time.Time{}
	c.mu.Unlock()
}
