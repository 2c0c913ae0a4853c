// Package probe discovers the host addresses attached to every report.
// Lookups are best effort and never fail: a degraded answer beats none.
package probe

import (
	"bufio"
	"net"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"

	"worktracker/internal/models"
)

const (
	fallbackIP  = "127.0.0.1"
	fallbackMAC = "00:00:00:00:00:00"
)

// Interface is one network adapter's IPv4 and hardware address. Either may be
// empty.
type Interface struct {
	Name string
	IP   string
	MAC  string
}

type Probe struct {
	listInterfaces func() ([]Interface, error)
	runCommand     func(name string, args ...string) ([]byte, error)
	outboundIP     func() (string, error)
	nodeID         func() []byte
	hostname       func() (string, error)
	activeWindow   func() string
	goos           string
}

func New() *Probe {
	return &Probe{
		listInterfaces: systemInterfaces,
		runCommand: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
		outboundIP:   outboundIP,
		nodeID:       uuid.NodeID,
		hostname:     os.Hostname,
		activeWindow: activeWindowTitle,
		goos:         runtime.GOOS,
	}
}

// Addresses picks the primary IP and MAC, preferring an interface that has
// both, and fills hostname and the focused window title.
func (p *Probe) Addresses() models.HostInfo {
	info := models.HostInfo{}
	ifaces := p.Interfaces()

	for _, i := range ifaces {
		if i.IP != "" && i.MAC != "" {
			info.IP, info.MAC = i.IP, i.MAC
			break
		}
	}
	if info.IP == "" {
		info.IP = p.primaryIP(ifaces)
	}
	if info.MAC == "" {
		info.MAC = p.primaryMAC(ifaces)
	}

	if h, err := p.hostname(); err == nil {
		info.Hostname = h
	}
	if p.activeWindow != nil {
		info.ActiveWindow = p.activeWindow()
	}
	return info
}

// Interfaces lists adapters sorted by name. The standard library is asked
// first; platform tools fill in when it returns nothing useful.
func (p *Probe) Interfaces() []Interface {
	ifaces, err := p.listInterfaces()
	if err != nil || len(ifaces) == 0 {
		ifaces = p.parsePlatform()
	}
	sort.Slice(ifaces, func(a, b int) bool { return ifaces[a].Name < ifaces[b].Name })
	return ifaces
}

func (p *Probe) parsePlatform() []Interface {
	if p.goos == "windows" {
		out, err := p.runCommand("ipconfig", "/all")
		if err != nil {
			return nil
		}
		return ParseIpconfig(string(out))
	}
	out, err := p.runCommand("ifconfig")
	if err != nil {
		return nil
	}
	return ParseIfconfig(string(out))
}

func (p *Probe) primaryIP(ifaces []Interface) string {
	for _, i := range ifaces {
		if i.IP != "" {
			return i.IP
		}
	}
	if ip, err := p.outboundIP(); err == nil && ip != "" {
		return ip
	}
	return fallbackIP
}

func (p *Probe) primaryMAC(ifaces []Interface) string {
	for _, i := range ifaces {
		if i.MAC != "" {
			return i.MAC
		}
	}
	if id := p.nodeID(); len(id) == 6 {
		return net.HardwareAddr(id).String()
	}
	return fallbackMAC
}

func systemInterfaces() ([]Interface, error) {
	list, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []Interface
	for _, ni := range list {
		if ni.Flags&net.FlagUp == 0 || ni.Flags&net.FlagLoopback != 0 {
			continue
		}
		i := Interface{Name: ni.Name, MAC: ni.HardwareAddr.String()}
		addrs, _ := ni.Addrs()
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
				i.IP = ipNet.IP.String()
				break
			}
		}
		if i.IP != "" || i.MAC != "" {
			out = append(out, i)
		}
	}
	return out, nil
}

// outboundIP asks the kernel which source address would route to a public
// host. UDP dial sends nothing.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

var (
	ifconfigHeader = regexp.MustCompile(`^([\w.\-]+):`)
	ifconfigInet   = regexp.MustCompile(`inet (?:addr:)?(\d+\.\d+\.\d+\.\d+)`)
	ifconfigEther  = regexp.MustCompile(`(?:ether|HWaddr) ([0-9a-fA-F]{2}(?::[0-9a-fA-F]{2}){5})`)

	ipconfigHeader = regexp.MustCompile(`^(?:Ethernet|Wireless LAN) adapter (.+):\s*$`)
	ipconfigIPv4   = regexp.MustCompile(`IPv4 Address[ .]*: (\d+\.\d+\.\d+\.\d+)`)
	ipconfigMAC    = regexp.MustCompile(`Physical Address[ .]*: ([0-9A-Fa-f]{2}(?:-[0-9A-Fa-f]{2}){5})`)
)

// ParseIfconfig reads BSD, macOS and net-tools style ifconfig output.
// Loopback addresses are dropped.
func ParseIfconfig(out string) []Interface {
	var ifaces []Interface
	var cur *Interface
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if line != "" && line[0] != ' ' && line[0] != '\t' {
			name := strings.Fields(line)[0]
			if m := ifconfigHeader.FindStringSubmatch(line); m != nil {
				name = m[1]
			}
			ifaces = append(ifaces, Interface{Name: strings.TrimSuffix(name, ":")})
			cur = &ifaces[len(ifaces)-1]
		}
		if cur == nil {
			continue
		}
		if m := ifconfigInet.FindStringSubmatch(line); m != nil && cur.IP == "" && !strings.HasPrefix(m[1], "127.") {
			cur.IP = m[1]
		}
		if m := ifconfigEther.FindStringSubmatch(line); m != nil && cur.MAC == "" {
			cur.MAC = strings.ToLower(m[1])
		}
	}
	return keepAddressed(ifaces)
}

// ParseIpconfig reads `ipconfig /all` output from Windows.
func ParseIpconfig(out string) []Interface {
	var ifaces []Interface
	var cur *Interface
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if m := ipconfigHeader.FindStringSubmatch(line); m != nil {
			ifaces = append(ifaces, Interface{Name: m[1]})
			cur = &ifaces[len(ifaces)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if m := ipconfigIPv4.FindStringSubmatch(line); m != nil && cur.IP == "" {
			cur.IP = m[1]
		}
		if m := ipconfigMAC.FindStringSubmatch(line); m != nil && cur.MAC == "" {
			cur.MAC = strings.ToLower(strings.ReplaceAll(m[1], "-", ":"))
		}
	}
	return keepAddressed(ifaces)
}

func keepAddressed(ifaces []Interface) []Interface {
	out := ifaces[:0]
	for _, i := range ifaces {
		if i.IP != "" || i.MAC != "" {
			out = append(out, i)
		}
	}
	return out
}
