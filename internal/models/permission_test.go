package models

import (
	"testing"
	"time"
)

func TestPermissionMapMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing PermissionMap
		incoming PermissionMap
		want     PermissionMap
	}{
		{
			name:     "空映射合并",
			existing: PermissionMap{},
			incoming: PermissionMap{OrgPrivilegeEvent: AccessWrite},
			want:     PermissionMap{OrgPrivilegeEvent: AccessWrite},
		},
		{
			name:     "键并集",
			existing: PermissionMap{OrgPrivilegeView: AccessRead},
			incoming: PermissionMap{OrgPrivilegeEvent: AccessWrite},
			want:     PermissionMap{OrgPrivilegeView: AccessRead, OrgPrivilegeEvent: AccessWrite},
		},
		{
			name:     "冲突键以新值为准",
			existing: PermissionMap{OrgPrivilegeEvent: AccessRead},
			incoming: PermissionMap{OrgPrivilegeEvent: AccessWrite},
			want:     PermissionMap{OrgPrivilegeEvent: AccessWrite},
		},
		{
			name:     "降级同样以新值为准",
			existing: PermissionMap{OrgPrivilegeEvent: AccessWrite},
			incoming: PermissionMap{OrgPrivilegeEvent: AccessRead},
			want:     PermissionMap{OrgPrivilegeEvent: AccessRead},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.existing.Merge(tt.incoming)
			if !got.Equal(tt.want) {
				t.Fatalf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPermissionMapMergeIdempotent(t *testing.T) {
	existing := PermissionMap{OrgPrivilegeView: AccessRead}
	incoming := PermissionMap{OrgPrivilegeEvent: AccessWrite}

	once := existing.Merge(incoming)
	twice := once.Merge(incoming)
	if !once.Equal(twice) {
		t.Fatalf("重复合并应当无变化: %v != %v", once, twice)
	}
}

func TestPermissionMapDiff(t *testing.T) {
	tests := []struct {
		name     string
		existing PermissionMap
		toRemove PermissionMap
		want     PermissionMap
	}{
		{
			name:     "移除存在的键",
			existing: PermissionMap{OrgPrivilegeView: AccessRead, OrgPrivilegeEvent: AccessWrite},
			toRemove: PermissionMap{OrgPrivilegeEvent: AccessWrite},
			want:     PermissionMap{OrgPrivilegeView: AccessRead},
		},
		{
			name:     "不存在的键忽略",
			existing: PermissionMap{OrgPrivilegeView: AccessRead},
			toRemove: PermissionMap{OrgPrivilegeEvent: AccessWrite},
			want:     PermissionMap{OrgPrivilegeView: AccessRead},
		},
		{
			name:     "按键移除不比较访问级别",
			existing: PermissionMap{OrgPrivilegeEvent: AccessWrite},
			toRemove: PermissionMap{OrgPrivilegeEvent: AccessRead},
			want:     PermissionMap{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.existing.Diff(tt.toRemove)
			if !got.Equal(tt.want) {
				t.Fatalf("Diff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidatePermissionMap(t *testing.T) {
	tests := []struct {
		name         string
		resourceType ResourceType
		m            PermissionMap
		wantErr      bool
	}{
		{
			name:         "合法的组织权限",
			resourceType: ResourceTypeOrganization,
			m:            PermissionMap{OrgPrivilegeEvent: AccessWrite, OrgPrivilegeAudit: AccessRead},
			wantErr:      false,
		},
		{
			name:         "合法的活动权限",
			resourceType: ResourceTypeEvent,
			m:            PermissionMap{EventPrivilegeTicket: AccessWrite},
			wantErr:      false,
		},
		{
			name:         "组织资源不接受活动专属权限项",
			resourceType: ResourceTypeOrganization,
			m:            PermissionMap{EventPrivilegeTicket: AccessWrite},
			wantErr:      true,
		},
		{
			name:         "audit不能与write搭配",
			resourceType: ResourceTypeOrganization,
			m:            PermissionMap{OrgPrivilegeAudit: AccessWrite},
			wantErr:      true,
		},
		{
			name:         "活动的audit同样只读",
			resourceType: ResourceTypeEvent,
			m:            PermissionMap{EventPrivilegeAudit: AccessWrite},
			wantErr:      true,
		},
		{
			name:         "非法访问级别",
			resourceType: ResourceTypeOrganization,
			m:            PermissionMap{OrgPrivilegeEvent: AccessLevel("all")},
			wantErr:      true,
		},
		{
			name:         "不支持具体权限项的资源类型",
			resourceType: ResourceTypeUser,
			m:            PermissionMap{OrgPrivilegeView: AccessRead},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePermissionMap(tt.resourceType, tt.m)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePermissionMap() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPermissionMapRoundTrip(t *testing.T) {
	var p Permission
	src := PermissionMap{OrgPrivilegeEvent: AccessWrite, OrgPrivilegeAudit: AccessRead}

	if err := p.SetMap(src); err != nil {
		t.Fatalf("SetMap: %v", err)
	}
	got, err := p.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if !got.Equal(src) {
		t.Fatalf("往返后不一致: %v != %v", got, src)
	}
}

func TestPermissionExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"无过期时间", nil, false},
		{"未到期", &future, false},
		{"已过期", &past, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Permission{ExpiresAt: tt.expiresAt}
			if got := p.Expired(now); got != tt.want {
				t.Fatalf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOwnerPermissionSets(t *testing.T) {
	if err := ValidatePermissionMap(ResourceTypeOrganization, OrganizationOwnerPermissions()); err != nil {
		t.Fatalf("组织持有者权限集应当合法: %v", err)
	}
	if err := ValidatePermissionMap(ResourceTypeEvent, EventOwnerPermissions()); err != nil {
		t.Fatalf("活动持有者权限集应当合法: %v", err)
	}
}
