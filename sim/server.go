package sim

import "fmt"

// noAgent marks an empty server slot or an empty waiting-list pop.
const noAgent = -1

// Server is one service slot at a queue. Servers exist for the whole run,
// are owned by their Station, and are mutated only by the engine.
type Server struct {
	ID    int
	agent int // id of the agent in service, or noAgent when idle
}

func newServer(id int) *Server {
	return &Server{ID: id, agent: noAgent}
}

// Busy reports whether the server currently holds an agent.
func (s *Server) Busy() bool { return s.agent != noAgent }

// assign places an agent on the server. Double-assignment is an engine
// defect with no recovery path.
func (s *Server) assign(agentID int) {
	if s.Busy() {
		panic(fmt.Sprintf("sim: server %d already serving agent %d, cannot assign agent %d",
			s.ID, s.agent, agentID))
	}
	s.agent = agentID
}

// release frees the server and returns the id of the agent it held.
func (s *Server) release() int {
	id := s.agent
	s.agent = noAgent
	return id
}
