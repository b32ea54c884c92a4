package cpemnet

// net.go contains code and data structures supporting the
// simulation of traffic through the communication network.

import (
	"encoding/json"
	"fmt"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
	"math"
	"os"
	"path"
	"strings"
)

type intPair struct {
	i, j int
}

type networkMsgType int

const (
	packet networkMsgType = iota
	srtFlow
	endFlow
	flowRate
)

var routeStepIntrfcs map[intPair]intPair

func getRouteStepIntrfcs(srcID, dstID int) (int, int) {
	ip := intPair{i: srcID, j: dstID}
	intrfcs, present := routeStepIntrfcs[ip]
	if !present {
		intrfcs, present = routeStepIntrfcs[intPair{i: dstID, j: srcID}]
		if !present {
			panic(fmt.Errorf("no step between %s and %s", topoDevById[srcID].devName(), topoDevById[dstID].devName()))
		}
	}
	return intrfcs.i, intrfcs.j
}

// TraceRecord saves information about the visitation of a message to some point in the simulation.
// saved for post-run analysis
type TraceRecord struct {
	Time      float64 // time in float64
	Ticks     int64   // ticks variable of time
	Priority  int64   // priority field of time-stamp
	ExecID    int     // integer identifier identifying the chain of traces this is part of
	ConnectID int     // integer identifier of the network connection
	ObjID     int     // integer id for object being referenced
	Op        string  // "start", "stop", "enter", "exit"
	Packet    bool    // true if the event marks the passage of a packet (rather than flow)
	Rate      float64 // rate associated with the connection
}

// NameType is a an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// TraceManager implements the pces TraceManager interface. It is
// use to gather information about a simulation model and an execution of that model
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment
	Traces map[int][]TraceRecord `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(ExpName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = ExpName
	tm.NameByID = make(map[int]NameType)    // dictionary of id code -> (name,type)
	tm.Traces = make(map[int][]TraceRecord) // traces have 'execution' origins, are saved by index to these
	return tm
}

// Active tells the caller whether the Trace Manager is activelyl being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddTrace creates a record of the trace using its calling arguments, and stores it
func (tm *TraceManager) AddTrace(vrt vrtime.Time, execID, connectID, objID int, op string,
	isPckt bool, rate float64) {

	// return if we aren't using the trace manager
	if !tm.InUse {
		return
	}

	_, present := tm.Traces[execID]
	if !present {
		tm.Traces[execID] = make([]TraceRecord, 0)
	}

	// create and add the trace record
	vmr := TraceRecord{Time: vrt.Seconds(), Ticks: vrt.Ticks(), Priority: vrt.Pri(), ConnectID: connectID,
		ExecID: execID, ObjID: objID, Op: op, Packet: isPckt, Rate: rate}

	tm.Traces[execID] = append(tm.Traces[execID], vmr)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if tm.InUse {
		_, present := tm.NameByID[id]
		if present {
			panic("duplicated id in AddName")
		}
		tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	}
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (tm *TraceManager) WriteToFile(filename string) bool {
	if !tm.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tm)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tm, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()
	return true
}

// devCode is the base type for an enumerated type of network devices
type devCode int

const (
	endptCode devCode = iota
	switchCode
	routerCode
	unknownCode
)

// devCodefromStr returns the devCode corresponding to an string name for it
func devCodeFromStr(code string) devCode {
	switch code {
	case "Endpt", "endpt":
		return endptCode
	case "Switch", "switch":
		return switchCode
	case "Router", "router", "rtr":
		return routerCode
	default:
		return unknownCode
	}
}

// devCodeToStr returns a string corresponding to an input devCode for it
func devCodeToStr(code devCode) string {
	switch code {
	case endptCode:
		return "Endpt"
	case switchCode:
		return "Switch"
	case routerCode:
		return "Router"
	case unknownCode:
		return "Unknown"
	}

	return "Unknown"
}

// networkScale is the base type for an enumerated type of network type descriptions
type networkScale int

const (
	LAN networkScale = iota
	WAN
	T3
	T2
	T1
	GeneralNet
)

// netScaleFromStr returns the networkScale corresponding to an string name for it
func netScaleFromStr(netScale string) networkScale {
	switch netScale {
	case "LAN":
		return LAN
	case "WAN":
		return WAN
	case "T3":
		return T3
	case "T2":
		return T2
	case "T1":
		return T1
	default:
		return GeneralNet
	}
}

// netScaleToStr returns a string name that corresponds to an input networkScale
func netScaleToStr(ntype networkScale) string {
	switch ntype {
	case LAN:
		return "LAN"
	case WAN:
		return "WAN"
	case T3:
		return "T3"
	case T2:
		return "T2"
	case T1:
		return "T1"
	case GeneralNet:
		return "GeneralNet"
	default:
		return "GeneralNet"
	}
}

// networkMedia is the base type for an enumerated type of comm network media
type networkMedia int

const (
	wired networkMedia = iota
	wireless
	unknownMedia
)

// netMediaFromStr returns the networkMedia type corresponding to the input string name
func netMediaFromStr(media string) networkMedia {
	switch media {
	case "Wired", "wired":
		return wired
	case "wireless", "Wireless":
		return wireless
	default:
		return unknownMedia
	}
}

var connectID int = 0

func nxtConnectID() int {
	connectID += 1
	return connectID
}

// the topDev interface specifies the functionality different device types provide
type topoDev interface {
	devName() string              // every device has a unique name
	DevID() int                   // every device has a unique integer id
	devType() devCode             // every device is one of the devCode types
	devIntrfcs() []*intrfcStruct  // we can get from devices a list of the interfaces they endpt, if any
	devDelay(any) float64         // every device can be be queried for the delay it introduces for an operation
	devState() any                // every device as a structure of state that can be accessed
	devRng() *rngstream.RngStream // every device has its own RNG stream
	devAddActive(*networkMsg)     // add the connectID argument to the device's list of active connections
	devRmActive(int)              // remove the connectID argument to the device's list of active connections
	LogNetEvent(vrtime.Time, int, int, string, bool, float64)
}

// paramObj interface is satisfied by every network object that
// can be configured at run-time with performance parameters. These
// are intrfcStruct, networkStruct, switchDev, endptDev, routerDev
type paramObj interface {
	matchParam(string, string) bool
	setParam(string, valueStruct)
	paramObjName() string
	LogNetEvent(vrtime.Time, int, int, string, bool, float64)
}

// The intrfcStruct holds information about a network interface embedded in a device
type intrfcStruct struct {
	name     string          // unique name, probably generated automatically
	groups   []string        // list of groups this interface may belong to
	number   int             // unique integer id, probably generated automatically
	devType  devCode         // device code of the device holding the interface
	media    networkMedia    // media of the network the interface interacts with
	device   topoDev         // pointer to the device holding the interface
	prmDev   paramObj        // pointer to the device holding the interface as a paramObj
	carry    *intrfcStruct   // points to the "other" interface in a connection
	cable    *intrfcStruct   // For a wired interface, points to the "other" interface in the connection
	wireless []*intrfcStruct // For a wireless interface, points to the other interfaces it can reach
	faces    *networkStruct  // pointer to the network the interface interacts with
	state    *intrfcState    // pointer to the interface's block of state information
}

// The  intrfcState holds parameters descriptive of the interface's capabilities
type intrfcState struct {
	bndwdth     float64         // maximum bandwidth (in Mbits/sec)
	bufferSize  float64         // buffer capacity (in Mbytes)
	load        float64         // sum of rates passing through
	latency     float64         // time the leading bit takes to traverse the wire out of the interface
	delay       float64         // time the leading bit takes to traverse the interface
	empties     float64         // time when another packet can enter the egress side of the interface
	mtu         int             // maximum packet size (bytes)
	trace       bool            // switch for calling add trace
	drop		bool			// whether to permit packet drops
	active      map[int]float64 // id of a connection actively passing through the interface, and its bandwidth
	ingressLoad float64
	egressLoad  float64
	packets     int
}

func createIntrfcState() *intrfcState {
	iss := new(intrfcState)
	iss.bndwdth = 0.0    // will be initialized or else we'll notice
	iss.bufferSize = 0.0 // not really using bufferSize yet
	iss.delay = 1e+6     // in seconds!  Set this way so that if not initialized we'll notice
	iss.latency = 1e+6
	iss.empties = 0.0
	iss.mtu = 1500 // in bytes Set for Ethernet2 MTU, should change if wireless
	iss.active = make(map[int]float64)
	iss.ingressLoad = 0.0
	iss.egressLoad = 0.0
	iss.packets = 0
	iss.trace = false
	return iss
}

// createIntrfcStruct is a constructor, building an intrfcStruct from a desc description of the interface
func createIntrfcStruct(intrfc *IntrfcDesc) *intrfcStruct {
	is := new(intrfcStruct)

	is.groups = intrfc.Groups

	// name comes from desc description
	is.name = intrfc.Name

	// unique id is locally generated
	is.number = nxtID()

	// desc representation codes the device type as a string
	switch intrfc.DevType {
	case "Endpt":
		is.devType = endptCode
	case "Router":
		is.devType = routerCode
	case "Switch":
		is.devType = switchCode
	}

	// The desc description gives the name of the device endpting the interface.
	// We can use this to look up the locally constructed representation of the device
	// and save a pointer to it
	is.device = topoDevByName[intrfc.Device]
	is.prmDev = paramObjByName[intrfc.Device]

	// desc representation codes the media type as a string
	switch intrfc.MediaType {
	case "wired", "Wired":
		is.media = wired
	case "wireless", "Wireless":
		is.media = wireless
	default:
		is.media = unknownMedia
	}

	is.wireless = make([]*intrfcStruct, 0)
	is.state = createIntrfcState()

	return is
}

func (intrfc *intrfcStruct) congested(ingress bool) bool {
	load := intrfc.state.ingressLoad
	if !ingress {
		load = intrfc.state.egressLoad
	}
	return math.Abs(load-intrfc.state.bndwdth) < 1e-3
}

type ShortIntrfc struct {
	DevName string
	Faces string
	IngressLoad float64
	EgressLoad float64
	ExecID int
	NetMsgType networkMsgType
	Rate float64
	PrArrvl float64
	Time float64
}

func (sis *ShortIntrfc) Serialize() string {
	var bytes []byte
	var merr error

	bytes, merr = yaml.Marshal(*sis)

	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}


func (intrfc *intrfcStruct) addTrace(label string, nm *networkMsg, t float64) {
	if !intrfc.state.trace {
		return
	}
	si := new(ShortIntrfc)
	si.DevName = intrfc.device.devName()
	si.Faces = intrfc.faces.name
	si.IngressLoad = intrfc.state.ingressLoad
	si.EgressLoad = intrfc.state.egressLoad
	si.ExecID = nm.execID
	si.NetMsgType = nm.netMsgType	
	si.Rate = nm.rate
	si.PrArrvl = nm.prArrvl
	siStr := si.Serialize()
	siStr = strings.Replace(siStr,"\n"," ",-1)
	fmt.Println(label, siStr)
}

// matchParam is used to determine whether a run-time parameter description
// should be applied to the interface. Its definition here helps intrfcStruct satisfy
// paramObj interface.  To apply or not to apply depends in part on whether the
// attribute given matchParam as input matches what the interface has. The
// interface attributes that can be tested are the device type of device that endpts it, and the
// media type of the network it interacts with
func (intrfc *intrfcStruct) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "name":
		return intrfc.name == attrbValue
	case "group":
		return slices.Contains(intrfc.groups, attrbValue)
	case "media":
		return netMediaFromStr(attrbValue) == intrfc.media
	case "devtype":
		return devCodeToStr(intrfc.device.devType()) == attrbValue
	case "devname":
		return intrfc.device.devName() == attrbValue
	}

	// an error really, as we should match only the names given in the switch statement above
	return false
}

// setParam assigns the parameter named in input with the value given in the input.
// N.B. the valueStruct has fields for integer, float, and string values.  Pick the appropriate one.
// setParam's definition here helps intrfcStruct satisfy the paramObj interface.
func (intrfc *intrfcStruct) setParam(paramType string, value valueStruct) {
	switch paramType {
	// latency, delay, and bandwidth are floats
	case "latency":
		// units of delay are seconds
		intrfc.state.latency = value.floatValue
	case "delay":
		// units of delay are seconds
		intrfc.state.delay = value.floatValue
	case "bandwidth":
		// units of bandwidth are Mbits/sec
		intrfc.state.bndwdth = value.floatValue
	case "buffer":
		// units of buffer are Mbytes
		intrfc.state.bufferSize = value.floatValue
	case "load":
		// units of buffer are Mbytes
		intrfc.state.ingressLoad = value.floatValue
		intrfc.state.egressLoad = value.floatValue
	case "MTU":
		// number of bytes in maximally sized packet
		intrfc.state.mtu = value.intValue
	case "trace":
		intrfc.state.trace = value.boolValue
	case "drop":
		intrfc.state.drop = value.boolValue
	}
}

func (intrfc *intrfcStruct) LogNetEvent(time vrtime.Time, execID int, connectID int, op string, isPckt bool, rate float64) {
	if !intrfc.state.trace {
		return
	}
	devTraceMgr.AddTrace(time, execID, connectID, intrfc.number, op, isPckt, rate)
}

// paramObjName helps intrfcStruct satisfy paramObj interface, returns interface name
func (intrfc *intrfcStruct) paramObjName() string {
	return intrfc.name
}

// linkIntrfcStruct sets the 'connect' and 'faces' values
// of an intrfcStruct based on the names coded in a IntrfcDesc.
func linkIntrfcStruct(intrfcDesc *IntrfcDesc) {
	// look up the intrfcStruct corresponding to the interface named in input intrfc
	is := intrfcByName[intrfcDesc.Name]

	// in IntrfcDesc the 'Cable' field is a string, holding the name of the target interface
	if len(intrfcDesc.Cable) > 0 {
		is.cable = intrfcByName[intrfcDesc.Cable]
	}

	// in IntrfcDesc the 'Carry' field is a string, holding the name of the target interface
	if len(intrfcDesc.Carry) > 0 {
		is.carry = intrfcByName[intrfcDesc.Carry]
	}

	if len(intrfcDesc.Wireless) > 0 {
		for _, intrfcName := range intrfcDesc.Wireless {
			is.wireless = append(is.wireless, intrfcByName[intrfcName])
		}
	}

	// in IntrfcDesc the 'Faces' field is a string, holding the name of the network the interface
	// interacts with
	if len(intrfcDesc.Faces) > 0 {
		is.faces = networkByName[intrfcDesc.Faces]
	}
}

// availBndwdth returns the interface bandwidth available to a new connection
func (intrfc *intrfcStruct) availBndwdth(ingress bool) float64 {

	// N.B. is difference between ingress and egress loads important?
	if ingress {
		return math.Max(intrfc.state.bndwdth-intrfc.state.ingressLoad, 0.0)
	} else {
		return math.Max(intrfc.state.bndwdth-intrfc.state.egressLoad, 0.0)
	}
}

func (intrfc *intrfcStruct) pcktDrop() bool {
	return intrfc.state.drop
}

// A networkStruct holds the attributes of one of the model's communication subnetworks
type networkStruct struct {
	name        string        // unique name
	groups      []string      // list of groups to which network belongs
	number      int           // unique integer id
	netScale    networkScale  // type, e.g., LAN, WAN, etc.
	netMedia    networkMedia  // communication fabric, e.g., wired, wireless
	netRouters  []*routerDev  // list of pointers to routerDevs with interfaces that face this subnetwork
	netSwitches []*switchDev  // list of pointers to switchDevs with interfaces that face this subnetwork
	netEndpts   []*endptDev   // list of pointers to endptDevs with interfaces that face this subnetwork
	netState    *networkState // pointer to a block of information comprising the network 'state'
}

// activeRec tracks one active flow passing through a network, keyed by
// execution id, so networkState.flows can report a total load.
type activeRec struct {
	number int
	rate   float64
}

// A networkState struct holds some static and dynamic information about the network's current state
type networkState struct {
	latency  float64 // latency through network (without considering explicitly declared wired connections) under no load
	bndwdth  float64 // maximum bandwidth between any two routers in network
	capacity float64 // maximum traffic capacity of network
	trace    bool    // switch for calling trace saving
	drop     bool    // switch for dropping packets with random sampling
	rngstrm  *rngstream.RngStream
	flows    map[int]activeRec // keep track of connections through the network
	load     float64           // real-time value of total load (in units of Mbytes/sec)
	packets  int               // number of packets actively passing in network
	
}

func (ns *networkStruct) addFlow(execId int, rate float64) {
	_, present := ns.netState.flows[execId]
	if !present {
		ns.netState.flows[execId] = activeRec{number:0, rate:0.0}
	}
	ar := ns.netState.flows[execId]
	ar.number += 1
	ar.rate += rate
	ns.netState.flows[execId] = ar
	ns.netState.load += rate
	return
}

func (ns *networkStruct) rmFlow(execId int, rate float64) {
	_, present := ns.netState.flows[execId]
	if !present {
		panic(fmt.Errorf("tried to remove non-existant flow instance from network"))
	}
	ar := ns.netState.flows[execId]
	ar.number -= 1
	ar.rate -= rate
	ns.netState.flows[execId] = ar
	if ns.netState.flows[execId].number == 0 {
		delete(ns.netState.flows, execId)
	}
	ns.netState.load -= rate
}
 
func (ns *networkStruct) chgFlow(execId int, delta float64) {
	_, present := ns.netState.flows[execId]
	if !present {
		panic(fmt.Errorf("tried to remove non-existant flow instance from network"))
	}
	ar := ns.netState.flows[execId]
	ar.rate += delta
	ns.netState.flows[execId] = ar
} 

// initNetworkStruct transforms information from the desc description
// of a network to its networkStruct representation.  This is separated from
// the createNetworkStruct constructor because it requires that the routerDevByName,
// endptDevByName and switchDevByName lists have been created, which in turn requires that
// the router constructors have already been called.  So the call to initNetworkStruct
// is delayed until all of the network device constructors have been called.
func (ns *networkStruct) initNetworkStruct(nd *NetworkDesc) {
	// in NetworkDesc a router is referred to through its string name
	ns.netRouters = make([]*routerDev, 0)
	for _, rtrName := range nd.Routers {
		// use the router name from the desc representation to find the run-time pointer
		// to the router and append to the network's list
		ns.addRouter(routerDevByName[rtrName])
	}

	ns.netEndpts = make([]*endptDev, 0)
	for _, endptName := range nd.Endpts {
		// use the router name from the desc representation to find the run-time pointer
		// to the router and append to the network's list
		ns.addEndpt(endptDevByName[endptName])
	}

	ns.netSwitches = make([]*switchDev, 0)
	for _, switchName := range nd.Switches {
		// use the router name from the desc representation to find the run-time pointer
		// to the router and append to the network's list
		ns.addSwitch(switchDevByName[switchName])
	}
	ns.groups = nd.Groups
}

// createNetworkStruct is a constructor that initialized some of the features of the networkStruct
// from their expression in a desc representation of the network
func createNetworkStruct(nd *NetworkDesc) *networkStruct {
	ns := new(networkStruct)

	// copy the name
	ns.name = nd.Name

	ns.groups = []string{}

	// get a unique integer id locally
	ns.number = nxtID()

	// get a netScale type from a desc string expression of it
	ns.netScale = netScaleFromStr(nd.NetScale)

	// get a netMedia type from a desc string expression of it
	ns.netMedia = netMediaFromStr(nd.MediaType)

	// initialize the Router lists, to be filled in by
	// initNetworkStruct after the router constructors are called
	ns.netRouters = make([]*routerDev, 0)
	ns.netEndpts = make([]*endptDev, 0)

	// make the state structure, will flesh it out from run-time configuration parameters
	ns.netState = createNetworkState(ns.name)
	return ns
}

// createNetworkState constructs the data for a networkState struct
func createNetworkState(name string) *networkState {
	ns := new(networkState)
	ns.flows = make(map[int]activeRec)
	ns.load = 0.0
	ns.packets = 0
	ns.drop = false
	ns.rngstrm = rngstream.New(name)
	return ns
}

// netLatency estimates the time required by a message to traverse the network,
// optionally as a function of the load.  This approximation is the mean time in system
// for an M/M/1 queue: (1/mu)/(1-rho).

func (ns *networkStruct) netLatency() float64 {
	rho := ns.netState.load / ns.netState.capacity
	rho = math.Min(rho, 0.99)
	m := ns.netState.latency / (1.0 - rho)
	return m
}

// matchParam is used to determine whether a run-time parameter description
// should be applied to the network. Its definition here helps networkStruct satisfy
// paramObj interface.  To apply or not to apply depends in part on whether the
// attribute given matchParam as input matches what the interface has. The
// interface attributes that can be tested are the media type, and the nework type
func (ns *networkStruct) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "name":
		return ns.name == attrbValue
	case "group":
		return slices.Contains(ns.groups, attrbValue)
	case "media":
		return netMediaFromStr(attrbValue) == ns.netMedia
	case "scale":
		return ns.netScale == netScaleFromStr(attrbValue)
	}

	// an error really, as we should match only the names given in the switch statement above
	return false
}

// setParam assigns the parameter named in input with the value given in the input.
// N.B. the valueStruct has fields for integer, float, and string values.  Pick the appropriate one.
// setParam's definition here helps networkStruct satisfy the paramObj interface.
func (ns *networkStruct) setParam(paramType string, value valueStruct) {
	// for some attributes we'll want the string-based value, for others the floating point one
	fltValue := value.floatValue

	// branch on the parameter being set
	switch paramType {
	case "latency":
		ns.netState.latency = fltValue
	case "bandwidth":
		ns.netState.bndwdth = fltValue
	case "capacity":
		ns.netState.capacity = fltValue
	case "load":
		ns.netState.load = fltValue
	case "trace":
		ns.netState.trace = value.boolValue
	case "drop":
		ns.netState.drop = value.boolValue
	}
}

// paramObjName helps networkStruct satisfy paramObj interface, returns network name
func (ns *networkStruct) paramObjName() string {
	return ns.name
}

func (ns *networkStruct) LogNetEvent(time vrtime.Time, execID int, connectID int, op string, isPckt bool, rate float64) {
	if !ns.netState.trace {
		return
	}
	devTraceMgr.AddTrace(time, execID, connectID, ns.number, op, isPckt, rate)
}

// addRouter includes the router given as input parameter on the network list of routers that face it
func (ns *networkStruct) addRouter(newrtr *routerDev) {
	// skip if rtr already exists in network netRouters list
	for _, rtr := range ns.netRouters {
		if rtr == newrtr || rtr.routerName == newrtr.routerName {
			return
		}
	}
	ns.netRouters = append(ns.netRouters, newrtr)
}

// addEndpt includes the endpt given as input parameter on the network list of endpts that face it
func (ns *networkStruct) addEndpt(newendpt *endptDev) {
	// skip if endpt already exists in network netEndpts list
	for _, endpt := range ns.netEndpts {
		if endpt == newendpt || endpt.endptName == newendpt.endptName {
			return
		}
	}
	ns.netEndpts = append(ns.netEndpts, newendpt)
}

// addSwitch includes the swtch given as input parameter on the network list of swtchs that face it
func (ns *networkStruct) addSwitch(newswtch *switchDev) {
	// skip if swtch already exists in network netSwitches list
	for _, swtch := range ns.netSwitches {
		if swtch == newswtch || swtch.switchName == newswtch.switchName {
			return
		}
	}
	ns.netSwitches = append(ns.netSwitches, newswtch)
}

// netBndwdth returns the current bandwidth available for a new connection
func (ns *networkStruct) availBndwdth() float64 {
	return math.Max(ns.netState.bndwdth-ns.netState.load, 0.0)
}

func (ns *networkStruct) pcktDrop() bool {
	return ns.netState.drop
}	

// a endptDev holds information about a endpt
type endptDev struct {
	endptName    string   // unique name
	endptGroups  []string // list of groups to which endpt belongs
	endptModel   string   // model of CPU the endpt uses
	endptEUD     bool
	endptCores   int
	endptSched   *TaskScheduler  // shares an endpoint's cores among computing tasks
	endptID      int             // unique integer id
	endptIntrfcs []*intrfcStruct // list of network interfaces embedded in the endpt
	endptState   *endptState     // a struct holding endpt state
}

// a endptState holds extra informat used by the endpt
type endptState struct {
	rngstrm *rngstream.RngStream // pointer to a random number generator
	trace   bool                 // switch for calling add trace
	drop	bool				 // whether to support packet drops at interface
	active  map[int]float64
	load    float64
	packets int
}

// matchParam is for other paramObj objects a method for seeing whether
// the device attribute matches the input.  For an endptDev the attributes
// matched are "name", "group" and "model"; any other attribute name returns
// false.  Included to allow endptDev to satisfy paramObj interface requirements
func (endpt *endptDev) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "name":
		return endpt.endptName == attrbValue
	case "group":
		return slices.Contains(endpt.endptGroups, attrbValue)
	case "model":
		return endpt.endptModel == attrbValue
	}

	// an error really, as we should match only the names given in the switch statement above
	return false
}

// setParam gives a value to a endptDev parameter.  The parameters that can
// be set are "trace" and the CPU "model"
func (endpt *endptDev) setParam(param string, value valueStruct) {
	switch param {
	case "trace":
		endpt.endptState.trace = value.boolValue
	case "model":
		endpt.endptModel = value.stringValue
	}
}

// paramObjName helps endptDev satisfy paramObj interface, returns the endpt's name
func (endpt *endptDev) paramObjName() string {
	return endpt.endptName
}

// createEndptDev is a constructor, using information from the desc description of the endpt
func createEndptDev(endptDesc *EndptDesc) *endptDev {
	endpt := new(endptDev)
	endpt.endptName = endptDesc.Name // unique name
	endpt.endptModel = endptDesc.Model
	endpt.endptCores = endptDesc.Cores
	endpt.endptID = nxtID()                       // unique integer id, generated at model load-time
	endpt.endptIntrfcs = make([]*intrfcStruct, 0) // initialization of list of interfaces, to be augmented later
	endpt.endptGroups = endptDesc.Groups
	endpt.endptState = createEndptState(endpt.endptName) // creation of state block, to be augmented later
	return endpt
}

// createEndptState constructs the data for the endpoint state
func createEndptState(name string) *endptState {
	eps := new(endptState)
	eps.active = make(map[int]float64)
	eps.load = 0.0
	eps.packets = 0
	eps.trace = false
	eps.rngstrm = rngstream.New(name)
	return eps
}

func (endpt *endptDev) initTaskScheduler() {
	scheduler := CreateTaskScheduler(endpt.endptCores)
	endpt.endptSched = scheduler
	TaskSchedulerByHostName[endpt.endptName] = scheduler
}

// addIntrfc appends the input intrfcStruct to the list of interfaces embedded in the endpt.
func (endpt *endptDev) addIntrfc(intrfc *intrfcStruct) {
	endpt.endptIntrfcs = append(endpt.endptIntrfcs, intrfc)
}

// CPUModel returns the string type description of the CPU model running the endpt
func (endpt *endptDev) CPUModel() string {
	return endpt.endptModel
}

// devName returns the endpt name, as part of the topoDev interface
func (endpt *endptDev) devName() string {
	return endpt.endptName
}

// devID returns the endpt integer id, as part of the topoDev interface
func (endpt *endptDev) DevID() int {
	return endpt.endptID
}

// devType returns the endpt's device type, as part of the topoDev interface
func (endpt *endptDev) devType() devCode {
	return endptCode
}

// devIntrfcs returns the endpt's list of interfaces, as part of the topoDev interface
func (endpt *endptDev) devIntrfcs() []*intrfcStruct {
	return endpt.endptIntrfcs
}

// devState returns the endpt's state struct, as part of the topoDev interface
func (endpt *endptDev) devState() any {
	return endpt.endptState
}

// devRng returns the endpt's rng pointer, as part of the topoDev interface
func (endpt *endptDev) devRng() *rngstream.RngStream {
	return endpt.endptState.rngstrm
}

func (endpt *endptDev) LogNetEvent(time vrtime.Time, execID int, connectID int, op string, isPckt bool, rate float64) {

	if !endpt.endptState.trace {
		return
	}
	devTraceMgr.AddTrace(time, execID, connectID, endpt.endptID, op, isPckt, rate)
}

// devAddActive adds an active connection, as part of the topoDev interface.  Not used for endpts, yet
func (endpt *endptDev) devAddActive(nme *networkMsg) {
	endpt.endptState.active[nme.connectID] = nme.rate
}

// devRmActive removes an active connection, as part of the topoDev interface.  Not used for endpts, yet
func (endpt *endptDev) devRmActive(connectID int) {
	delete(endpt.endptState.active, connectID)
}

// devDelay returns the state-dependent delay for passage through the device, as part of the topoDev interface.
// Not really applicable to endpt, so zero is returned
func (endpt *endptDev) devDelay(arg any) float64 {
	return 0.0
}


// The switchDev struct holds information describing a run-time
// representation of a switch. Its switchState carries the MMU/PFC/CPEM
// core (mmu.go, pfc.go, ecn.go, cpem_feedback.go, cpem_credit.go,
// loadbalance.go) in place of the single scalar bufferSize field the
// teacher version of this struct used (its drop and load fields remain
// below) — that scalar was sufficient for a
// coarse load-dependent-delay model but say nothing about per-queue
// admission or flow control, which is the point of this module.
type switchDev struct {
	switchName    string          // unique name
	switchGroups  []string        // groups to which the switch may belong
	switchModel   string          // model name, used to identify performance characteristics
	switchID      int             // unique integer id, generated at model-load time
	switchIntrfcs []*intrfcStruct // list of network interfaces embedded in the switch
	switchState   *switchState    // pointer to the switch's state struct
}

// The switchState struct holds auxiliary information about the switch,
// including the full CPEM/MMU/PFC core.
type switchState struct {
	rngstrm *rngstream.RngStream // pointer to a random number generator
	trace   bool                 // switch for calling trace saving
	drop    bool                 // switch to allow dropping packets
	active  map[int]float64
	load    float64
	capacity float64
	packets int

	// portByIntrfc maps a global intrfcStruct.number to this switch's
	// local port index in [1,P), per spec.md §3.
	portByIntrfc map[int]int
	intrfcByPort [P]*intrfcStruct

	bufCfg *BufferConfig
	mmu    *MMUState
	pfc    *PFCEngine
	ecn    *ECNConfig
	cpemFb *CPEMCredit
	fbGen  *CPEMFeedback
	lb     *LoadBalancer
	rt     *RoutingTable
	params *CPEMParams
	stats  switchStats

	// txSched holds one single-core TaskScheduler per local port,
	// serializing egress transmission so a port can only be draining one
	// packet at a time (spec.md §4.4's enqueue/dequeue split).
	txSched [P]*TaskScheduler
}

// switchStats is the per-switch statistics aggregate spec.md §5 calls
// for ("Global statistics counters... become per-switch"): the counter
// fields are write-once-per-event and monotonically increasing;
// TxBacklog is the one gauge field, filled in at Stats() call time
// rather than accumulated.
type switchStats struct {
	DroppedIngressFull      uint64
	DroppedEgressFull       uint64
	DroppedEgressThreshold  uint64
	FeedbackSent            uint64
	FeedbackReceived        uint64
	RateAdjustments         uint64
	TxBacklog               [P]int // per-port scheduler.go TaskScheduler.Pending() at snapshot time
}

// createSwitchDev is a constructor, initializing a run-time representation of a switch from its desc description
func createSwitchDev(switchDesc *SwitchDesc) *switchDev {
	swtch := new(switchDev)
	swtch.switchName = switchDesc.Name
	swtch.switchModel = switchDesc.Model
	swtch.switchID = nxtID()
	swtch.switchIntrfcs = make([]*intrfcStruct, 0)
	swtch.switchGroups = switchDesc.Groups
	swtch.switchState = createSwitchState(swtch.switchName)
	return swtch
}

// createSwitchState constructs data structures for the switch's state,
// including the CPEM/MMU/PFC core, using default tunables. Callers that
// need non-default tunables call ConfigureCPEM afterward (switch_core.go).
func createSwitchState(name string) *switchState {
	ss := new(switchState)
	ss.active = make(map[int]float64)
	ss.load = 0.0
	ss.packets = 0
	ss.trace = false
	ss.drop = false
	ss.rngstrm = rngstream.New(name)
	ss.portByIntrfc = make(map[int]int)
	return ss
}

// matchParam is used to determine whether a run-time parameter description
// should be applied to the switch. Its definition here helps switchDev satisfy
// the paramObj interface.  To apply or not to apply depends in part on whether the
// attribute given matchParam as input matches what the switch has. 'name', 'group'
// and 'model' are the attributes we use to match a switch
func (swtch *switchDev) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "name":
		return swtch.switchName == attrbValue
	case "group":
		return slices.Contains(swtch.switchGroups, attrbValue)
	case "model":
		return swtch.switchModel == attrbValue
	}

	// an error really, as we should match only the names given in the switch statement above
	return false
}

// setParam gives a value to a switchDev parameter, to help satisfy the paramObj interface.
// Parameters that can be altered on a switch are "model", "buffer", "trace", and "drop"
func (swtch *switchDev) setParam(param string, value valueStruct) {
	switch param {
	case "model":
		swtch.switchModel = value.stringValue
	case "buffer":
		if swtch.switchState.bufCfg != nil {
			swtch.switchState.bufCfg.MaxBuffer = value.floatValue
		}
	case "trace":
		swtch.switchState.trace = value.boolValue
	case "drop":
		swtch.switchState.drop = value.boolValue
	}
}

// paramObjName returns the switch name, to help satisfy the paramObj interface.
func (swtch *switchDev) paramObjName() string {
	return swtch.switchName
}

// addIntrfc appends the input intrfcStruct to the list of interfaces embedded in the switch.
func (swtch *switchDev) addIntrfc(intrfc *intrfcStruct) {
	swtch.switchIntrfcs = append(swtch.switchIntrfcs, intrfc)
}

// devName returns the switch name, as part of the topoDev interface
func (swtch *switchDev) devName() string {
	return swtch.switchName
}

// devID returns the switch integer id, as part of the topoDev interface
func (swtch *switchDev) DevID() int {
	return swtch.switchID
}

// devType returns the switch's device type, as part of the topoDev interface
func (swtch *switchDev) devType() devCode {
	return switchCode
}

// devIntrfcs returns the switch's list of interfaces, as part of the topoDev interface
func (swtch *switchDev) devIntrfcs() []*intrfcStruct {
	return swtch.switchIntrfcs
}

// devState returns the switch's state struct, as part of the topoDev interface
func (swtch *switchDev) devState() any {
	return swtch.switchState
}

// devRng returns the switch's rng pointer, as part of the topoDev interface
func (swtch *switchDev) devRng() *rngstream.RngStream {
	return swtch.switchState.rngstrm
}

// devAddActive adds a connection id to the list of active connections through the switch, as part of the topoDev interface
func (swtch *switchDev) devAddActive(nme *networkMsg) {
	swtch.switchState.active[nme.connectID] = nme.rate
}

// devRmActive removes a connection id to the list of active connections through the switch, as part of the topoDev interface
func (swtch *switchDev) devRmActive(connectID int) {
	delete(swtch.switchState.active, connectID)
}

// estMM1NFull estimates the probability an M/M/1/N queue with utilization
// u is full, used by estPrDrop to approximate drop probability from
// aggregate load rather than per-packet queueing simulation.
func estMM1NFull(u float64, N int) float64 {
	prFull := 1.0 / float64(N+1)
	if math.Abs(1.0-u) >= 1e-3 {
		prFull = (1 - u) * math.Pow(u, float64(N)) / (1 - math.Pow(u, float64(N+1)))
	}
	return prFull
}

// estPrDrop estimates the probability of a packet drop given the current
// load and capacity of a link and the number of packets an M/M/1/N model
// says can be in flight over delay at rate.
func estPrDrop(load, capacity float64, msgLen int, delay, rate float64) float64 {
	u := load / capacity
	m := float64(msgLen*8) / 1e+6
	N := int(math.Round(delay * rate * 1e+6 / m))
	return estMM1NFull(u, N)
}

// passThruDelay looks up the execution-time table entry for a switch or
// router's model, as part of the topoDev interface's devDelay contract.
func passThruDelay(dev topoDev, msg any) float64 {
	var model string
	var opType = "switch"

	if dev.devType() == routerCode {
		rtrDev := dev.(*routerDev)
		model = rtrDev.routerModel
	} else {
		swtch := dev.(*switchDev)
		model = swtch.switchModel
	}

	if len(model) == 0 {
		model = "Default"
	}

	_, present := devExecTimeTbl[opType]
	if !present {
		panic(fmt.Errorf("no timing information for op type %s", opType))
	}

	return devExecTimeTbl[opType][model]
}

// devDelay returns the state-dependent delay for passage through the switch, as part of the topoDev interface.
func (swtch *switchDev) devDelay(msg any) float64 {
	delay := passThruDelay(swtch, msg)
	// N.B. we could put load-dependent scaling factor here
	return delay
}

// LogNetEvent satisfies topoDev interface
func (swtch *switchDev) LogNetEvent(time vrtime.Time, execID int, connectID int, op string, isPckt bool, rate float64) {
	if !swtch.switchState.trace {
		return
	}
	devTraceMgr.AddTrace(time, execID, connectID, swtch.switchID, op, isPckt, rate)
}

// The routerDev struct holds information describing a run-time representation of a router
type routerDev struct {
	routerName    string          // unique name
	routerGroups  []string        // list of groups to which the router belongs
	routerModel   string          // attribute used to identify router performance characteristics
	routerID      int             // unique integer id assigned at model-load time
	routerIntrfcs []*intrfcStruct // list of interfaces embedded in the router
	routerState   *routerState    // pointer to the struct of the routers auxiliary state
}

// The routerState type describes auxiliary information about the router
type routerState struct {
	rngstrm *rngstream.RngStream // pointer to a random number generator
	trace   bool                 // switch for calling trace saving
	drop    bool				 // switch to allow dropping packets
	active  map[int]float64
	load    float64
	buffer  float64
	packets int
}

// createRouterDev is a constructor, initializing a run-time representation of a router from its desc representation
func createRouterDev(routerDesc *RouterDesc) *routerDev {
	router := new(routerDev)
	router.routerName = routerDesc.Name
	router.routerModel = routerDesc.Model
	router.routerID = nxtID()
	router.routerIntrfcs = make([]*intrfcStruct, 0)
	router.routerGroups = routerDesc.Groups
	router.routerState = createRouterState(router.routerName)
	return router
}

func createRouterState(name string) *routerState {
	rs := new(routerState)
	rs.active = make(map[int]float64)
	rs.load = 0.0
	rs.buffer = math.MaxFloat64/2.0
	rs.packets = 0
	rs.trace = false
	rs.drop = false
	rs.rngstrm = rngstream.New(name)
	return rs
}

// matchParam is used to determine whether a run-time parameter description
// should be applied to the router. Its definition here helps routerDev satisfy
// the paramObj interface.  To apply or not to apply depends in part on whether the
// attribute given matchParam as input matches what the router has. 'name', 'group'
// and 'model' are the attributes we use to match a router
func (router *routerDev) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "name":
		return router.routerName == attrbValue
	case "group":
		return slices.Contains(router.routerGroups, attrbValue)
	case "model":
		return router.routerModel == attrbValue
	}

	// an error really, as we should match only the names given in the switch statement above
	return false
}

// setParam gives a value to a routerDev parameter, to help satisfy the paramObj interface.
// Parameters that can be altered on a router are "model", "buffer", and "trace"
func (router *routerDev) setParam(param string, value valueStruct) {
	switch param {
	case "model":
		router.routerModel = value.stringValue
	case "buffer":
		router.routerState.buffer = value.floatValue
	case "trace":
		router.routerState.trace = value.boolValue
	}
}

// paramObjName returns the router name, to help satisfy the paramObj interface.
func (router *routerDev) paramObjName() string {
	return router.routerName
}

// addIntrfc appends the input intrfcStruct to the list of interfaces embedded in the router.
func (router *routerDev) addIntrfc(intrfc *intrfcStruct) {
	router.routerIntrfcs = append(router.routerIntrfcs, intrfc)
}

// devName returns the router name, as part of the topoDev interface
func (router *routerDev) devName() string {
	return router.routerName
}

// devID returns the router integer id, as part of the topoDev interface
func (router *routerDev) DevID() int {
	return router.routerID
}

// devType returns the router's device type, as part of the topoDev interface
func (router *routerDev) devType() devCode {
	return routerCode
}

// devIntrfcs returns the routers's list of interfaces, as part of the topoDev interface
func (router *routerDev) devIntrfcs() []*intrfcStruct {
	return router.routerIntrfcs
}

// devState returns the routers's state struct, as part of the topoDev interface
func (router *routerDev) devState() any {
	return router.routerState
}

// devRng returns a pointer to the routers's rng struct, as part of the topoDev interface
func (router *routerDev) devRng() *rngstream.RngStream {
	return router.routerState.rngstrm
}

func (router *routerDev) LogNetEvent(time vrtime.Time, execID int, connectID int, op string, isPckt bool, rate float64) {
	if !router.routerState.trace {
		return
	}
	devTraceMgr.AddTrace(time, execID, connectID, router.routerID, op, isPckt, rate)
}

// devAddActive includes a connectID as part of what is active at the device, as part of the topoDev interface
func (router *routerDev) devAddActive(nme *networkMsg) {
	router.routerState.active[nme.connectID] = nme.rate
}

// devRmActive removes a connectID as part of what is active at the device, as part of the topoDev interface
func (router *routerDev) devRmActive(connectID int) {
	delete(router.routerState.active, connectID)
}

// devDelay returns the state-dependent delay for passage through the router, as part of the topoDev interface.
func (router *routerDev) devDelay(msg any) float64 {
	delay := passThruDelay(router, msg)
	// N.B. we could put load-dependent scaling factor here

	return delay
}

// The intrfcsToDev struct describes a connection to a device.  Used in route descriptions
type intrfcsToDev struct {
	srcIntrfcID int // id of the interface where the connection starts
	dstIntrfcID int // id of the interface embedded by the target device
	netID       int // id of the network between the src and dst interfaces
	devID       int // id of the device the connection targets
}

// The networkMsg type creates a wrapper for a message between comp pattern funcs.
// One value (stepIdx) indexes into a list of route steps, so that by incrementing
// we can find 'the next' step in the route.  One value is a pointer to this route list,
// and the final value is a pointe to an inter-func comp pattern message.
type networkMsg struct {
	stepIdx    int             // position within the route from source to destination
	route      *[]intrfcsToDev // pointer to description of route
	connectID  int             // connection identifier
	execID     int             // execution id given by app at entry
	netMsgType networkMsgType  // enum type packet, srtFlow, endFlow, flowRate
	rate       float64         // effective bandwidth for message
	startTime  float64
	prArrvl    float64         // probablity of arrival
	msgLen     int             // length of the entire message, in Mbytes
	msg        any             // message being carried.
}

func (nm *networkMsg) carriesPckt() bool {
	return nm.netMsgType == packet
}

