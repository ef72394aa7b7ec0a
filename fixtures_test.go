package agentm

type (
	Address struct{ Document }
	Person  struct{ Document }
	Team    struct{ Document }
	Party   struct{ Document }
)

var (
	addresses = Define("addresses", func(d Document) *Address { return &Address{d} })
	people    = Define("people", func(d Document) *Person { return &Person{d} })
	teams     = Define("teams", func(d Document) *Team { return &Team{d} })
	parties   = Define("", func(d Document) *Party { return &Party{d} }, Abstract())

	addressCity = Writable[string]("city", nil)

	personName = Writable[string]("name", func(s string) bool { return s != "" })
	personAge  = Writable[int]("age", MustExpr[int]("value >= 0 && value < 150"))
	personHome = Reference[*Address]("home", addresses)

	teamName    = Readonly[string]("name")
	teamMembers = ReferenceList[*Person]("members", people)
	teamRoster  = ReferenceList[*Person]("roster.current.members", people)
)

func (p *Person) Name() string           { return personName.Get(p) }
func (p *Person) SetName(v string) error { return personName.Set(p, v) }
