package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

type OrganizationID string

func NewOrganizationID(id string) OrganizationID { return OrganizationID(id) }
func (o OrganizationID) String() string          { return string(o) }
func (o OrganizationID) IsEmpty() bool           { return string(o) == "" }

type APIKeyID string

func (k APIKeyID) String() string { return string(k) }
func (k APIKeyID) IsEmpty() bool  { return string(k) == "" }
